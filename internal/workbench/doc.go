// Package workbench holds the single-file editing session shared by the CLI
// and the HTTP API.
//
// A Session loads one SRT file, classifies its reading speed, applies local
// timing fixes synchronously and runs AI rewrite or translation passes in the
// background. Only one background run may be active; competing requests get
// an error marked with services.ErrBusy. Every run is recorded through an
// optional RunRecorder so history survives restarts.
package workbench
