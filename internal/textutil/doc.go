// Package textutil holds small text helpers: Chinese detection, show-title
// extraction from file names, output file naming, and filename sanitizing.
package textutil
