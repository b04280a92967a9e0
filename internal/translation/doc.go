// Package translation drives the model provider for the three language tasks:
// analyzing a show title, translating Chinese subtitles into Vietnamese in
// fixed-size chunks, and shortening dense Vietnamese lines for the rewrite
// coordinator.
//
// Prompts carry a glossary of Hán-Việt terms (built in, optionally extended
// from YAML). Request payloads are built with sjson and responses are read
// with gjson so a loosely formatted answer still yields usable items.
package translation
