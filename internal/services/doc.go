// Package services implements the business logic layer of StatTwin. It sits
// between the HTTP handlers and the preprocessing, filtering and ranking
// packages, and translates API contracts into domain queries.
//
// # Services
//
//	- SimilarityService: owns the processed player table and answers
//	  similarity, batch ranking and filter requests against it
//	- LeagueService: league catalogue lookups backed by a league.Registry
//	- HealthService: liveness, readiness and runtime statistics
//
// # Datasets
//
// A SimilarityService holds one processed Dataset at a time. Loading a new
// table runs the full preprocessing pipeline and then swaps the dataset in a
// single step, so concurrent queries always see either the old or the new
// table and never a partially processed one. Tables are never modified after
// they are published.
//
// # Error Handling
//
// Services return *errors.AppError values (or wrap the sentinels in this
// package) so handlers can map them onto RFC 7807 problem details:
//
//	- CONFIG for unusable query parameters such as unknown features
//	- LOOKUP for a query player that is not in the table
//	- NOT_FOUND for unknown leagues or a missing dataset
package services
