package signer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/internal/typeddata"
	"github.com/layer-3/herald/ports"
)

// ConfirmFunc asks the user to approve a signing request described by summary
type ConfirmFunc func(summary string) (bool, error)

// ConfirmingSigner asks for approval before every signature
type ConfirmingSigner struct {
	inner   ports.Signer
	confirm ConfirmFunc
}

// WithConfirmation wraps inner so every request goes through confirm first
func WithConfirmation(inner ports.Signer, confirm ConfirmFunc) ports.Signer {
	return &ConfirmingSigner{inner: inner, confirm: confirm}
}

func (s *ConfirmingSigner) Address() common.Address {
	return s.inner.Address()
}

func (s *ConfirmingSigner) SignMessage(ctx context.Context, text string) ([]byte, error) {
	summary := fmt.Sprintf("Sign in as %s?\n\n%s\n", s.inner.Address().Hex(), text)
	if err := s.ask(core.StageAuth, summary); err != nil {
		return nil, err
	}
	return s.inner.SignMessage(ctx, text)
}

func (s *ConfirmingSigner) SignTypedData(ctx context.Context, domain, types, value typeddata.Value) ([]byte, error) {
	if err := s.ask(core.StageSign, describeTypedData(domain, types, value)); err != nil {
		return nil, err
	}
	return s.inner.SignTypedData(ctx, domain, types, value)
}

func (s *ConfirmingSigner) ask(stage core.Stage, summary string) error {
	ok, err := s.confirm(summary)
	if err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return core.NewError(stage, core.ErrUserRejected, "interrupted", nil)
		}
		return core.NewError(stage, core.ErrSignerUnavailable, "confirmation failed", err)
	}
	if !ok {
		return core.NewError(stage, core.ErrUserRejected, "", nil)
	}
	return nil
}

func describeTypedData(domain, types, value typeddata.Value) string {
	var b strings.Builder
	primary := "message"
	if parsed, err := typeddata.ParseTypes(types); err == nil {
		if name, err := parsed.PrimaryType(); err == nil {
			primary = name
		}
	}
	name, _ := domain.Get("name")
	domainName, _ := name.Text()
	fmt.Fprintf(&b, "Sign %s for %q?\n\n", primary, domainName)
	for _, f := range value.Fields() {
		text, ok := f.Value.Text()
		if !ok {
			encoded, _ := f.Value.MarshalJSON()
			text = string(encoded)
		}
		fmt.Fprintf(&b, "  %s: %s\n", f.Name, text)
	}
	return b.String()
}

// SurveyConfirm prompts on the terminal
func SurveyConfirm(summary string) (bool, error) {
	approved := false
	prompt := &survey.Confirm{
		Message: summary,
		Default: false,
	}
	if err := survey.AskOne(prompt, &approved); err != nil {
		return false, err
	}
	return approved, nil
}
