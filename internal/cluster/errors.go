// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"errors"
	"fmt"
)

type SetupStep string

type SetupError struct {
	Label  string
	Step   SetupStep
	Reason string
	Err    error
}

type TeardownError struct {
	Label  string
	Reason string
	Err    error
}

// PanicError is raised by WithCluster instead of the original panic value when the body panicked
// and the subsequent teardown failed as well.
type PanicError struct {
	Value       any
	TeardownErr error
}

const (
	StepResolve    SetupStep = "resolve"
	StepRegister   SetupStep = "register"
	StepList       SetupStep = "list"
	StepCredential SetupStep = "credential"
)

var (
	ErrSetup        = errors.New("cluster setup failed")
	ErrTeardown     = errors.New("cluster teardown failed")
	ErrInvalidState = errors.New("invalid cluster state")
)

func (e *SetupError) Error() string {
	msg := fmt.Sprintf("cluster setup of '%s' failed at step '%s': %s", e.Label, e.Step, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func (e *SetupError) Is(target error) bool {
	return target == ErrSetup
}

func (e *TeardownError) Error() string {
	msg := fmt.Sprintf("cluster teardown of '%s' failed: %s", e.Label, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}

func (e *TeardownError) Is(target error) bool {
	return target == ErrTeardown
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v; %v", e.Value, e.TeardownErr)
}

func (e *PanicError) Unwrap() []error {
	errs := []error{e.TeardownErr}
	if valueErr, ok := e.Value.(error); ok {
		errs = append(errs, valueErr)
	}
	return errs
}
