// Package include provides named-template sources for {{> name}} includes.
//
// Map is a fixed in-memory source. Dir serves a directory of template
// files (.tmpl, .md, .txt, .html), each optionally starting with YAML
// front matter:
//
//	---
//	name: admission-letter
//	description: Letter sent to a new resident's next of kin
//	required: [organization.name, record.name]
//	options:
//	  strict_mode: true
//	---
//	Dear {{record.nextOfKin.name}}, ...
//
// Dir.Watch keeps the loaded set in sync with the filesystem using
// fsnotify, falling back to polling where fsnotify is unavailable.
package include
