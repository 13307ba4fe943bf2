package dataset

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	"github.com/VaishakhVipin/stattwin/internal/table"
)

const sampleCSV = "player_id,name,age,minutes,shots\n" +
	"p1,Alpha,24,900,10\n" +
	"p2,Bravo,,450,NaN\n" +
	"p3,,31,0,2\n"

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return tbl
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: ".JSON", want: FormatJSON},
		{in: " xlsx ", want: FormatXLSX},
		{in: "parquet", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	f, err := FormatFromPath("out/report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
}

func TestReadCSV(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"player_id", "name", "age", "minutes", "shots"}, tbl.Names())

	age, ok := tbl.Column("age")
	require.True(t, ok)
	assert.True(t, age.IsNumeric())
	assert.True(t, age.IsMissing(1))

	name, _ := tbl.Column("name")
	assert.False(t, name.IsNumeric())
	assert.True(t, name.IsMissing(2))

	assert.True(t, math.IsNaN(tbl.Float(1, "shots")))
}

func TestReadCSV_BOMAndErrors(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\xEF\xBB\xBFplayer_id,shots\np1,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"player_id", "shots"}, tbl.Names())

	_, err = ReadCSV(strings.NewReader(""))
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
}

func TestReadJSON(t *testing.T) {
	doc := `[
		{"player_id": "p1", "shots": 3, "league": "EPL"},
		{"player_id": "p2", "shots": null, "age": 22},
		{"shots": 1.5, "player_id": "p3"}
	]`
	tbl, err := ReadJSON(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"player_id", "shots", "league", "age"}, tbl.Names())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 1.5, tbl.Float(2, "shots"))
	assert.True(t, math.IsNaN(tbl.Float(1, "shots")))
	assert.Equal(t, "", tbl.Str(1, "league"))

	age, _ := tbl.Column("age")
	assert.True(t, age.IsNumeric())
}

func TestReadJSON_Errors(t *testing.T) {
	for _, doc := range []string{`{"a": 1}`, `[1, 2]`, `[{"a": 1}`, ``} {
		_, err := ReadJSON(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tbl := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, true))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), back.Names())
	assert.Equal(t, tbl.Str(0, "name"), back.Str(0, "name"))
	assert.Equal(t, 450.0, back.Float(1, "minutes"))
	assert.True(t, math.IsNaN(back.Float(1, "age")))
}

func TestWriteJSON(t *testing.T) {
	tbl, err := table.FromRows([]string{"player_id", "score", "note"}, [][]any{
		{"p1", 0.5, "ok"},
		{"p2", math.Inf(1), nil},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, tbl))
	assert.Equal(t,
		`[{"player_id":"p1","score":0.5,"note":"ok"},{"player_id":"p2","score":null,"note":null}]`+"\n",
		buf.String())

	back, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"player_id", "score", "note"}, back.Names())
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	tbl := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tbl, ""))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	require.NoError(t, f.Close())

	back, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), back.Names())
	assert.Equal(t, 3, back.Len())
	assert.Equal(t, 24.0, back.Float(0, "age"))
	assert.True(t, math.IsNaN(back.Float(1, "age")))
	assert.Equal(t, "Bravo", back.Str(1, "name"))

	_, err = ReadXLSX(bytes.NewReader(buf.Bytes()), "missing")
	assert.Error(t, err)
}

func TestWriter_WriteFileAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	tbl := sampleTable(t)
	w := NewWriter(nil)

	for _, name := range []string{"out.csv", "nested/out.json", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, w.WriteFile(path, tbl))

			back, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tbl.Len(), back.Len())
			assert.Equal(t, "p3", back.Str(2, "player_id"))
			assert.Equal(t, 900.0, back.Float(0, "minutes"))
		})
	}

	assert.Error(t, w.WriteFile(filepath.Join(dir, "out.txt"), tbl))
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeStorage))

	path := filepath.Join(dir, "data.dat")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	_, err = LoadFile(path)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeParsing))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var calls int32
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte(sampleCSV), nil
	}

	ctx := context.Background()
	_, err := c.GetOrFetch(ctx, "k", fetch, time.Hour)
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, "k", fetch, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(2 * time.Hour)
	_, err = c.GetOrFetch(ctx, "k", fetch, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = c.GetOrFetch(ctx, "k", fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	c.Invalidate("k")
	_, err = c.GetOrFetch(ctx, "k", fetch, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestMemoryCache_ErrorNotCached(t *testing.T) {
	c := NewMemoryCache()
	boom := errors.New("upstream down")

	_, err := c.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) { return nil, boom }, time.Hour)
	assert.ErrorIs(t, err, boom)

	data, err := c.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) { return []byte("ok"), nil }, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestMemoryCache_ConcurrentMissesShareFetch(t *testing.T) {
	c := NewMemoryCache()
	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("x"), nil
	}

	var wg sync.WaitGroup
	started := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			_, _ = c.GetOrFetch(context.Background(), "k", fetch, time.Hour)
		}()
	}
	for i := 0; i < 4; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(4))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestLoadCached(t *testing.T) {
	c := NewMemoryCache()
	tbl, err := LoadCached(context.Background(), c, "players", FormatCSV,
		func(context.Context) ([]byte, error) { return []byte(sampleCSV), nil }, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}
