// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreSpaceNotFound      Code = "store.space.get.not_found"
	CodeStoreNodeNotFound       Code = "store.node.get.not_found"
	CodeStoreEdgeNotFound       Code = "store.edge.get.not_found"
	CodeStorePropertyNotFound   Code = "store.property.get.not_found"
	CodeStoreSnapshotNotFound   Code = "store.snapshot.get.not_found"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreConflict           Code = "store.conflict"
	CodeStoreInvalidInput       Code = "store.invalid_input"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretInvalidInput   Code = "secret.invalid_input"
	CodeSecretNotFound       Code = "secret.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeWikidataUpstreamFailure Code = "wikidata.upstream.failure"
	CodeWikidataResponseInvalid Code = "wikidata.response.invalid_format"
	CodeWikidataEntityNotFound  Code = "wikidata.entity.not_found"

	CodeOntologyTableInvalid Code = "ontology.table.invalid"

	CodeProjectionUnavailable  Code = "projection.driver.unavailable"
	CodeProjectionQueryFailure Code = "projection.query.failure"
	CodeProjectionWriteFailure Code = "projection.write.failure"

	CodeSearchQueryInvalid Code = "search.query.invalid_input"

	CodeGraphNotConnected    Code = "spacegraph.path.not_connected"
	CodeGraphNodeMissing     Code = "spacegraph.node.not_found"
	CodeGraphRevertFailure   Code = "spacegraph.revert.failure"
	CodeGraphSnapshotInvalid Code = "spacegraph.snapshot.invalid_format"

	CodeJobFailure Code = "job.run.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
	CodeCLIAborted      Code = "cli.confirm.aborted"
)

// Attr is one key/value pair attached to an error's oops context.
type Attr struct {
	Key   string
	Value any
}

// Field builds an Attr. Empty keys are dropped when the error is built.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSpaceID(value int64) Attr {
	return Field("space_id", value)
}

func FieldNodeID(value int64) Attr {
	return Field("node_id", value)
}

func FieldEdgeID(value int64) Attr {
	return Field("edge_id", value)
}

func FieldEntityID(value string) Attr {
	return Field("entity_id", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsUnavailable reports whether err signals a dependency that could not be
// reached at all (as opposed to one that answered with a failure).
func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsNotConnected(err error) bool {
	return reason(CodeOf(err)) == "not_connected"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err), IsNotConnected(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
