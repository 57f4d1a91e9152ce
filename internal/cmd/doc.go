// Package cmd implements the tailq command line.
//
// Commands:
//
//	tailq publish    send ExampleMessage values, printing "Sent N (total M)"
//	tailq subscribe  receive them, printing "Received N (total M)"
//	tailq demo       one publisher and several subscribers in one process
//	tailq migrate    create the PostgreSQL positions table
//
// Settings come from TAILQ_* variables (and a .env file) and can be
// overridden with flags. Store connections use MONGODB_*, REDIS_* and PG_*.
package cmd
