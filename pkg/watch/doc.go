// Package watch keeps generated artifacts in step with the collections
// directory.
//
// A Coordinator owns the single rebuild loop. Changes reported by an
// EventSource, or requested through Trigger, schedule a full rebuild; requests
// that arrive while a pass is running collapse into one pending pass.
//
// Two event sources are provided: FSNotify, backed by kernel notifications,
// and Poller, which scans file modification times on an interval for
// filesystems where notifications are unavailable.
package watch
