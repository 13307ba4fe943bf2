package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PlayersCSV is a five player table: three EPL forwards across two seasons,
// an EPL defender and a LaLiga midfielder.
const PlayersCSV = `player_id,name,position,age,league,season,minutes,shots,shots_on_target,passes_completed,passes_attempted,tackles,interceptions
pA,Alpha,FW,24,EPL,2023-2024,900,30,15,200,250,10,5
pB,Bravo,FW,26,EPL,2023-2024,900,28,14,190,240,11,5
pC,Charlie,DF,30,EPL,2023-2024,900,5,1,600,700,60,40
pD,Delta,MF,22,LaLiga,2023-2024,900,12,5,500,560,30,25
pE,Echo,FW,25,EPL,2022-2023,900,29,15,195,245,10,6
`

// WriteFile writes content to dir/name, creating dir, and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
