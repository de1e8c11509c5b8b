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
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

const (
	defaultWinRMPort    = 5985
	defaultWinRMTimeout = 4 * time.Second

	// WS-Man Identify is the cheapest authenticated round trip WinRM
	// offers; it returns vendor and stack version without a shell.
	wsmanIdentifyEnvelope = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"` +
		` xmlns:wsmid="http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd">` +
		`<s:Header/><s:Body><wsmid:Identify/></s:Body></s:Envelope>`
)

type wsmanIdentifyResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		IdentifyResponse struct {
			ProtocolVersion string `xml:"ProtocolVersion"`
			ProductVendor   string `xml:"ProductVendor"`
			ProductVersion  string `xml:"ProductVersion"`
		} `xml:"IdentifyResponse"`
	} `xml:"Body"`
}

// WinRMClient collects Windows hosts through the WinRM HTTP listener using a
// WS-Man Identify exchange with basic authentication.
type WinRMClient struct {
	port    int
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

func NewWinRMClient(timeout time.Duration, log logger.Logger) *WinRMClient {
	if timeout == 0 {
		timeout = defaultWinRMTimeout
	}

	return &WinRMClient{
		port:    defaultWinRMPort,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

func (*WinRMClient) Family() models.ProtocolFamily {
	return models.ProtocolWindowsManagement
}

func (c *WinRMClient) Collect(ctx context.Context, addr string, cred models.Credential) (*models.DeviceRecord, *models.Failure) {
	endpoint := fmt.Sprintf("http://%s/wsman", net.JoinHostPort(addr, strconv.Itoa(c.port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(wsmanIdentifyEnvelope))
	if err != nil {
		return nil, &models.Failure{Kind: models.FailureProtocol, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/soap+xml;charset=UTF-8")

	username := cred.Username
	if cred.Domain != "" {
		username = cred.Domain + "\\" + cred.Username
	}

	req.SetBasicAuth(username, cred.Password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failureFromErr(err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("Failed to close WinRM response body")
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &models.Failure{
			Kind:    models.FailureAuth,
			Message: fmt.Sprintf("winrm rejected credentials with status %d", resp.StatusCode),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &models.Failure{
			Kind:    models.FailureProtocol,
			Message: fmt.Sprintf("winrm identify returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, failureFromErr(err)
	}

	var identify wsmanIdentifyResponse
	if err := xml.Unmarshal(body, &identify); err != nil {
		return nil, &models.Failure{Kind: models.FailureProtocol, Message: err.Error()}
	}

	record := &models.DeviceRecord{
		Address:      addr,
		ProtocolUsed: string(models.ProtocolWindowsManagement),
		Fields:       make(map[string]string, 3),
		CollectedAt:  time.Now(),
	}

	ir := identify.Body.IdentifyResponse
	if ir.ProductVendor != "" {
		record.Fields["product_vendor"] = ir.ProductVendor
	}

	if ir.ProductVersion != "" {
		record.Fields["product_version"] = ir.ProductVersion
	}

	if ir.ProtocolVersion != "" {
		record.Fields["wsman_protocol"] = ir.ProtocolVersion
	}

	if len(record.Fields) == 0 {
		return nil, &models.Failure{
			Kind:    models.FailureProtocol,
			Message: "winrm identify response carried no product information",
		}
	}

	return record, nil
}
