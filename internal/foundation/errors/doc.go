// Package errors provides the classified error primitives used across nanosite.
//
// A ClassifiedError carries a category (config, validation, markdown,
// transform, integration, filesystem, runtime, internal), a severity and a
// small context map. Errors are created through the fluent ErrorBuilder:
//
//	err := errors.WrapError(cause, errors.CategoryTransform, "transform failed").
//		WithContext("transform", "mermaid").
//		WithContext("page", page.SourcePath).
//		Build()
//
// The CLI and HTTP adapters turn classified errors into exit codes and
// status codes respectively.
package errors
