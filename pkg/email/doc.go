// Package email sends transactional mail through Postmark, or writes it to
// disk in development.
//
// New picks the implementation from Config: with both Postmark tokens set it
// returns a Postmark-backed Sender, otherwise a DevSender that stores each
// message as an HTML file plus a JSON metadata file under Config.DevDir.
//
// Message bodies are rendered from templ components, see the templates
// subpackage.
package email
