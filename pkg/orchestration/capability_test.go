package orchestration_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func TestRegistryResolve(t *testing.T) {
	ledger := newProvider("ledger").on("post", ok(nil))
	reg, err := orchestration.NewRegistry(ledger)
	require.NoError(t, err)

	p, err := reg.Resolve(orchestration.Ref("ledger", "post"))
	require.NoError(t, err)
	assert.Equal(t, "ledger", p.Name())

	_, err = reg.Resolve(orchestration.Ref("ledger", "void"))
	assert.ErrorIs(t, err, orchestration.ErrUnsupportedOperation)

	_, err = reg.Resolve(orchestration.Ref("bank", "post"))
	assert.ErrorIs(t, err, orchestration.ErrUnknownProvider)

	err = reg.Register(newProvider("ledger"))
	assert.ErrorIs(t, err, orchestration.ErrDuplicateProvider)

	require.NoError(t, reg.Register(newProvider("bank")))
	assert.Equal(t, []string{"bank", "ledger"}, reg.Names())
}

func TestParseCapabilityRef(t *testing.T) {
	ref, err := orchestration.ParseCapabilityRef(" ledger.create_journal_entry ")
	require.NoError(t, err)
	assert.Equal(t, orchestration.Ref("ledger", "create_journal_entry"), ref)
	assert.Equal(t, "ledger.create_journal_entry", ref.String())

	for _, bad := range []string{"", "ledger", ".post", "ledger."} {
		_, err := orchestration.ParseCapabilityRef(bad)
		assert.ErrorIs(t, err, orchestration.ErrInvalidCapabilityRef, bad)
	}
}

func TestFuncProvider(t *testing.T) {
	p := orchestration.NewFuncProvider("math", map[string]orchestration.InvokeFunc{
		"neg": func(_ context.Context, in orchestration.Input) orchestration.Response {
			return orchestration.Succeed(-in.(int))
		},
	})
	assert.True(t, p.Supports("neg"))
	assert.False(t, p.Supports("abs"))
	assert.Equal(t, -4, p.Invoke(context.Background(), "neg", 4).Value)

	resp := p.Invoke(context.Background(), "abs", 4)
	assert.False(t, resp.Success)
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, orchestration.ErrUnsupportedOperation)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, orchestration.KindNone, orchestration.KindOf(nil))
	assert.Equal(t, orchestration.KindPermanent, orchestration.KindOf(errBusiness))
	assert.Equal(t, orchestration.KindCancelled, orchestration.KindOf(context.Canceled))
	assert.Equal(t, orchestration.KindTransient,
		orchestration.KindOf(fmt.Errorf("dial: %w", context.DeadlineExceeded)))

	wrapped := fmt.Errorf("post entry: %w",
		orchestration.WithKind(orchestration.KindTransient, errNetwork))
	assert.Equal(t, orchestration.KindTransient, orchestration.KindOf(wrapped))
	assert.ErrorIs(t, wrapped, errNetwork)

	stepErr := &orchestration.StepError{
		StepID: "s", Kind: orchestration.KindValidation, Attempts: 1,
	}
	assert.Equal(t, orchestration.KindValidation, orchestration.KindOf(stepErr))
}

func TestFailClassifiesUnknownKinds(t *testing.T) {
	resp := orchestration.Fail("flaky", orchestration.WithKind(orchestration.KindTransient, nil))
	assert.Equal(t, orchestration.KindTransient, resp.ErrorKind)

	resp = orchestration.Fail(orchestration.KindNone, nil)
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)

	resp = orchestration.FailWith(errors.New("boom"))
	assert.Equal(t, orchestration.KindPermanent, resp.ErrorKind)
}

func TestParseErrorKind(t *testing.T) {
	k, err := orchestration.ParseErrorKind("Transient")
	require.NoError(t, err)
	assert.Equal(t, orchestration.KindTransient, k)

	_, err = orchestration.ParseErrorKind("network")
	assert.ErrorIs(t, err, orchestration.ErrInvalidErrorKind)
}

func TestExecutionContextReaders(t *testing.T) {
	type snapshot struct {
		len       int
		succeeded bool
		failed    bool
		hasB      bool
		valueOK   bool
		values    map[string]any
	}
	var seen snapshot

	probe := orchestration.Step{
		ID:         "probe",
		Capability: orchestration.Ref("svc", "a"),
		Input: func(
			_ orchestration.Request, ec *orchestration.ExecutionContext,
		) (orchestration.Input, error) {
			_, valueOK := ec.Value("b")
			seen = snapshot{
				len:       ec.Len(),
				succeeded: ec.Succeeded("a"),
				failed:    ec.Failed("b"),
				hasB:      ec.Has("b"),
				valueOK:   valueOK,
				values:    ec.Values(),
			}
			return nil, nil
		},
	}
	wf := &orchestration.Workflow{
		ID:          "ctx",
		FailureMode: orchestration.Lenient,
		Steps:       []orchestration.Step{step("a", "a"), step("b", "b"), probe},
	}
	p := newProvider("svc").
		on("a", ok("A")).
		on("b", fail(orchestration.KindPermanent, errBusiness))

	_, err := newOrchestrator(p).Run(context.Background(), wf, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, seen.len)
	assert.True(t, seen.succeeded)
	assert.True(t, seen.failed)
	assert.True(t, seen.hasB)
	assert.False(t, seen.valueOK)
	assert.Equal(t, map[string]any{"a": "A"}, seen.values)
}
