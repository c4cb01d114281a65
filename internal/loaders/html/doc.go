// Package html provides a Loader for HTML documents.
// Scripts, styles and page chrome are dropped and the body is converted
// to Markdown so headings and lists survive as readable structure.
package html
