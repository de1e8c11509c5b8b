/*
 * Copyright 2026 the AssetRadar Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package protocols implements the per-family collection clients consumed by
// the pipeline. Clients return typed failures as data, never panics, and are
// safe for concurrent use by multiple collection workers.
package protocols

//go:generate mockgen -destination=mock_client.go -package=protocols github.com/assetradar/assetradar/pkg/protocols Client

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/assetradar/assetradar/pkg/models"
)

// Client collects a device record from one host over one protocol family.
type Client interface {
	Family() models.ProtocolFamily
	Collect(ctx context.Context, addr string, cred models.Credential) (*models.DeviceRecord, *models.Failure)
}

// Set maps protocol families to their clients. Missing families simply fail
// fast during the fallback walk.
type Set map[models.ProtocolFamily]Client

// Get returns the client for a family, or nil when none is registered.
func (s Set) Get(family models.ProtocolFamily) Client {
	return s[family]
}

// failureFromErr maps transport errors onto the failure taxonomy.
func failureFromErr(err error) *models.Failure {
	kind := models.FailureProtocol

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		kind = models.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = models.FailureTimeout
	case errors.Is(err, context.Canceled):
		kind = models.FailureTimeout
	default:
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			kind = models.FailureUnreachable
		}
	}

	return &models.Failure{Kind: kind, Message: err.Error()}
}
