// Package audit runs page audits against retrieved artifacts.
//
// An audit declares the artifacts it needs in its Meta and produces a
// scored model.AuditOutcome. The Runner coordinates registered audits the
// same way for every page: it checks that the required artifacts exist,
// runs each audit in order, and keeps going when one of them fails.
//
// The charset audit is the only built-in audit. It asks a MainResourceSource
// for the main document response and scores whether the page declares its
// character encoding.
package audit
