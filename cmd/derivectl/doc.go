// Command derivectl works on a media-derive storage root from the command
// line, using the same configuration as the server.
//
// Usage:
//
//	derivectl [--env-file .env] [--storage DIR] <command>
//
// Commands:
//
//	derive <path>          create (or read) the derivative named by path
//	thumb <path>           create the thumbnail of a source
//	purge <path>           remove every derivative and thumbnail of a source
//	key encode <source>    print the derivative name for --spec and --format
//	key decode <name>      print what a derivative name requests
//	url <source>           print the public URL of a derivative
//	warm <dir>             pre-generate derivatives for every image under dir
//
// warm runs on a bounded worker pool and waits while the memory monitor
// reports pressure.
package main
