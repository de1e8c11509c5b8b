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
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

const (
	defaultSSHPort    = 22
	defaultSSHTimeout = 4 * time.Second
)

// factCommands are the per-field shell commands run on a collected host.
// Each command is best-effort; a failing command leaves its field empty.
var factCommands = map[string]string{
	"hostname":  "hostname -f 2>/dev/null || hostname",
	"kernel":    "uname -sr",
	"os":        ". /etc/os-release 2>/dev/null && echo \"$PRETTY_NAME\"",
	"serial":    "cat /sys/class/dmi/id/product_serial 2>/dev/null",
	"mac":       "cat /sys/class/net/$(ip route show default 2>/dev/null | awk '/default/ {print $5; exit}')/address 2>/dev/null",
	"cpu_model": "awk -F': ' '/model name/ {print $2; exit}' /proc/cpuinfo",
}

// SSHClient collects Unix hosts over SSH with password authentication.
type SSHClient struct {
	port    int
	timeout time.Duration
	logger  logger.Logger
}

func NewSSHClient(timeout time.Duration, log logger.Logger) *SSHClient {
	if timeout == 0 {
		timeout = defaultSSHTimeout
	}

	return &SSHClient{
		port:    defaultSSHPort,
		timeout: timeout,
		logger:  log,
	}
}

func (*SSHClient) Family() models.ProtocolFamily {
	return models.ProtocolUnixShell
}

func (c *SSHClient) Collect(ctx context.Context, addr string, cred models.Credential) (*models.DeviceRecord, *models.Failure) {
	client, fail := c.connect(ctx, addr, cred)
	if fail != nil {
		return nil, fail
	}

	defer func() {
		if err := client.Close(); err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("Failed to close SSH connection")
		}
	}()

	record := &models.DeviceRecord{
		Address:      addr,
		ProtocolUsed: string(models.ProtocolUnixShell),
		Fields:       make(map[string]string, len(factCommands)),
		CollectedAt:  time.Now(),
	}

	for field, command := range factCommands {
		out, err := runCommand(client, command)
		if err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Str("field", field).Msg("Fact command failed")
			continue
		}

		c.applyFact(record, field, out)
	}

	if record.Hostname == "" && len(record.Fields) == 0 {
		return nil, &models.Failure{
			Kind:    models.FailureProtocol,
			Message: fmt.Sprintf("ssh session to %s yielded no facts", addr),
		}
	}

	return record, nil
}

func (c *SSHClient) applyFact(record *models.DeviceRecord, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	switch field {
	case "hostname":
		record.Hostname = value
	case "serial":
		record.SerialNumber = value
	case "mac":
		record.MAC = value
	default:
		record.Fields[field] = value
	}
}

func (c *SSHClient) connect(ctx context.Context, addr string, cred models.Credential) (*ssh.Client, *models.Failure) {
	config := &ssh.ClientConfig{
		User: cred.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cred.Password),
		},
		// Inventory scans talk to hosts that were never provisioned with
		// known_hosts entries.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         c.timeout,
	}

	target := net.JoinHostPort(addr, strconv.Itoa(c.port))

	dialer := net.Dialer{Timeout: c.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, failureFromErr(err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, config)
	if err != nil {
		_ = conn.Close()

		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, &models.Failure{Kind: models.FailureAuth, Message: err.Error()}
		}

		return nil, &models.Failure{Kind: models.FailureProtocol, Message: err.Error()}
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func runCommand(client *ssh.Client, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}

	defer func() { _ = session.Close() }()

	out, err := session.Output(command)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
