// Package coordinator keeps the last known state of one spa up to date.
//
// A Coordinator polls the cloud on a fixed interval, applies commands
// optimistically so callers see the requested value immediately, and
// schedules a follow-up refresh once the cloud has had time to settle.
// Several quick commands share a single follow-up refresh.
//
// Consumers such as the bridge server and the watch dashboard read the state
// through Snapshot/Status or receive it as Update values via Subscribe.
package coordinator
