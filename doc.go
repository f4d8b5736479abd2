// Package oof is the runtime half of the oof toolkit: a structured error
// type that carries a machine-checkable classification (tags), free-form
// attachments, the location of the failure, and, when the source was
// instrumented with the oofgen rewriter, a generated description of the
// exact call chain that failed, including argument values.
//
// The package is dependency-free on purpose: instrumented code links only
// against it, never against the generator stack.
//
// # Construction
//
// Errors are created either directly:
//
//	return oof.Errorf("config %q is not usable", path)
//	return oof.Wrap(err)
//
// or by generated code through [AutoWrap], which attaches a generated
// [Context] describing the failed call chain. The fluent helpers return
// builders, so classification can be layered on the way out:
//
//	return oof.WithTag(err, Retryable).WithAttachment(addr)
//
// # Classification
//
// Tags are opaque keys created once with [NewTag] and compared by identity.
// Query helpers walk the causal chain in both directions:
//
//	if oof.TaggedNested(err, Retryable) {
//		// schedule a retry
//	}
//
// # Rendering
//
// Error() is a single line (message plus location). The %+v verb renders the
// detailed multi-line form: message, location, the Parameters block of the
// failed chain, attachments, and every cause in the chain.
package oof
