// Package advisory produces the short safety note shown next to a route.
//
// An Advisor answers in one of three modes:
//
//	simulation  no provider key configured; a canned note chosen by score
//	disabled    a key is configured but the integration is switched off
//	provider    the note comes from an OpenAI-compatible chat endpoint
//
// A provider failure degrades to the disabled notice; Analyze never fails.
package advisory
