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

package protocols

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/assetradar/assetradar/pkg/models"
)

func TestSetGetDispatchesToRegisteredClient(t *testing.T) {
	ctrl := gomock.NewController(t)

	ssh := NewMockClient(ctrl)
	ssh.EXPECT().Collect(gomock.Any(), "10.0.0.1", gomock.Any()).
		Return(&models.DeviceRecord{Address: "10.0.0.1"}, nil)

	set := Set{models.ProtocolUnixShell: ssh}

	client := set.Get(models.ProtocolUnixShell)
	require.NotNil(t, client)

	record, failure := client.Collect(context.Background(), "10.0.0.1", models.Credential{Username: "scan"})
	require.Nil(t, failure)
	assert.Equal(t, "10.0.0.1", record.Address)
}

func TestSetGetMissingFamilyIsNil(t *testing.T) {
	set := Set{}

	assert.Nil(t, set.Get(models.ProtocolWindowsManagement))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFailureFromErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.FailureKind
	}{
		{"deadline exceeded", context.DeadlineExceeded, models.FailureTimeout},
		{"io deadline", os.ErrDeadlineExceeded, models.FailureTimeout},
		{"net timeout", timeoutErr{}, models.FailureTimeout},
		{"canceled", context.Canceled, models.FailureTimeout},
		{"refused", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, models.FailureUnreachable},
		{"anything else", errors.New("short read"), models.FailureProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := failureFromErr(tt.err)
			assert.Equal(t, tt.want, failure.Kind)
			assert.NotEmpty(t, failure.Message)
		})
	}
}
