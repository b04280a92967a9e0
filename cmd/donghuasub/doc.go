// Command donghuasub checks and repairs the reading speed of Chinese to
// Vietnamese subtitle files.
//
// Local commands (analyze, fix, speed) work offline. optimize, translate,
// title and health talk to the configured AI provider; serve exposes the same
// workbench over HTTP for the browser UI. Every run is recorded in the state
// directory and listed by history.
package main
