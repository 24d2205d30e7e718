// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package cluster

import (
	"context"
	"errors"
	"log/slog"
)

// WithCluster sets up a cluster, runs the body against it and tears the cluster down on every exit path.
// Errors of body and teardown are joined. When the body panics, the cluster is still torn down and the panic continues;
// if that teardown fails too, the panic continues with a *PanicError carrying both.
func WithCluster(ctx context.Context, m *Manager, config Config, body func(*Handle) error) (err error) {
	handle, release, err := Acquire(ctx, m, config)
	if err != nil {
		return err
	}

	panicking := true
	defer func() {
		teardownErr := release(ctx)

		if panicking {
			if teardownErr != nil {
				slog.Error("Cluster teardown failed while panicking", "label", handle.Name, "error", teardownErr)
				if value := recover(); value != nil {
					panic(&PanicError{Value: value, TeardownErr: teardownErr})
				}
			}
			return
		}
		err = errors.Join(err, teardownErr)
	}()

	err = body(handle)
	panicking = false
	return err
}

// Acquire sets up a cluster and returns it together with its release function. Release tears the cluster down
// even if the given ctx is already done; the removal stays bounded by the manager's command timeout.
func Acquire(ctx context.Context, m *Manager, config Config) (*Handle, func(context.Context) error, error) {
	handle, err := m.Setup(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	release := func(ctx context.Context) error {
		return m.Teardown(context.WithoutCancel(ctx), handle)
	}
	return handle, release, nil
}
