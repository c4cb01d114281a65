// Package connectors finds the source files docqa ingests. Each connector
// turns user-supplied locations into file paths the loader registry can
// resolve.
package connectors
