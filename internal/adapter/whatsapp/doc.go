// Package whatsapp implements domain.Client on top of the whatsmeow multi-device library.
//
// Every session gets its own SQLite device store under the configured directory,
// keyed by session id, so a relaunched client resumes its paired device.
package whatsapp
