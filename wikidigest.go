// Package wikidigest watches wiki pages for content changes, describes their
// images with a vision model, indexes them for search, and mails digests of
// each change to subscribers.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, elasticsearch/).
package wikidigest
