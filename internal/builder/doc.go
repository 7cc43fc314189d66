// Package builder turns batches of task records into molecule documents.
//
// For one formula batch the flow is:
//
//	classify → filter allowed types → group by structure →
//	  per group: extract → resolve → assemble → validate
//
// Every step inside a group is synchronous and pure apart from logging.
// The pass stamp is passed in explicitly, so batches may be built
// concurrently without shared state.
//
// INVARIANTS:
//   - Document identity is the task id with the smallest TaskKey among
//     the group's candidates, computed once per group
//   - created_at and updated_at bound every candidate's last_updated
//   - Aggregated fields never produce an origin record
//   - Rebuilding a group from identical inputs yields an identical
//     document apart from the pass stamp
package builder
