// Package archive implements the resumable streaming archive for one
// subreddit's submissions.
//
// An archive moves through four lifecycle states, encoded entirely by
// which files exist on disk:
//
//   - Absent: no output file, no marker.
//   - InProgress: the plain JSON file exists alongside a .incomplete
//     marker. The marker holds the resume timestamp, or nothing when no
//     record has been written yet.
//   - Sealed: only the gzip-compressed file exists. Terminal and immutable.
//   - Broken: the plain file exists without a marker. Never produced by
//     normal operation; the archiver refuses to touch it.
//
// The plain file is kept a syntactically valid JSON-array prefix after
// every single append, so an interruption at any record boundary leaves a
// parseable file. Resuming scans backward from the end of file for the
// last complete record's closing brace and discards anything after it.
package archive
