// Command reframe converts media files through a supervised ffmpeg engine
// and runs diagnostic batches across resolution ladders.
package main
