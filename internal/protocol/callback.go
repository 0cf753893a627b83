package protocol

import (
	"github.com/pkg/errors"

	"github.com/skybridge-games/corenet/internal/wire"
)

// CallbackKind identifies the shape of a validation callback, grounded in
// original_source/csrc/Source/Protocol/ValidationDataProtocol.cpp.
type CallbackKind uint8

const (
	// CallbackName prompts for a display/account name.
	CallbackName CallbackKind = 1
	// CallbackPassword prompts for a password, with an echo-on flag for
	// whether the UI should mask input.
	CallbackPassword CallbackKind = 2
	// CallbackTextInput prompts for free-form text.
	CallbackTextInput CallbackKind = 3
)

// ErrUnknownCallbackKind is returned by DecodeCallback for a kind tag not in
// the closed set above. Per spec §4.2, the caller should log and skip it,
// not treat it as fatal.
var ErrUnknownCallbackKind = errors.New("protocol: unknown validation callback kind")

// ValidationCallback is a single login-time credential prompt/response
// record (spec §4.2 "Validation-callback encoding").
type ValidationCallback struct {
	Kind     CallbackKind
	Prompt   string
	Default  string
	Current  string // the application fills this in before SendValidationResponse
	EchoOn   bool   // only meaningful for CallbackPassword
}

func encodeCallback(buf *wire.Buffer, cb ValidationCallback) error {
	if err := buf.PutU8(uint8(cb.Kind)); err != nil {
		return err
	}
	switch cb.Kind {
	case CallbackName, CallbackTextInput:
		if err := buf.PutString(cb.Prompt); err != nil {
			return err
		}
		if err := buf.PutString(cb.Default); err != nil {
			return err
		}
		return buf.PutString(cb.Current)
	case CallbackPassword:
		if err := buf.PutString(cb.Prompt); err != nil {
			return err
		}
		if err := buf.PutBool(cb.EchoOn); err != nil {
			return err
		}
		return buf.PutString(cb.Current)
	default:
		return errors.WithStack(ErrUnknownCallbackKind)
	}
}

func decodeCallback(buf *wire.Buffer) (ValidationCallback, error) {
	kindByte, err := buf.GetU8()
	if err != nil {
		return ValidationCallback{}, err
	}
	kind := CallbackKind(kindByte)
	switch kind {
	case CallbackName, CallbackTextInput:
		prompt, err := buf.GetString()
		if err != nil {
			return ValidationCallback{}, err
		}
		def, err := buf.GetString()
		if err != nil {
			return ValidationCallback{}, err
		}
		cur, err := buf.GetString()
		if err != nil {
			return ValidationCallback{}, err
		}
		return ValidationCallback{Kind: kind, Prompt: prompt, Default: def, Current: cur}, nil
	case CallbackPassword:
		prompt, err := buf.GetString()
		if err != nil {
			return ValidationCallback{}, err
		}
		echo, err := buf.GetBool()
		if err != nil {
			return ValidationCallback{}, err
		}
		cur, err := buf.GetString()
		if err != nil {
			return ValidationCallback{}, err
		}
		return ValidationCallback{Kind: kind, Prompt: prompt, EchoOn: echo, Current: cur}, nil
	default:
		return ValidationCallback{}, errors.WithStack(ErrUnknownCallbackKind)
	}
}
