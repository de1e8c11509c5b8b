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
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

const defaultHTTPTimeout = 3 * time.Second

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// HTTPProbeClient is the last rung of the fallback chain: an unauthenticated
// banner grab that salvages at least a server header or page title from hosts
// no management protocol could reach.
type HTTPProbeClient struct {
	client *http.Client
	logger logger.Logger
}

func NewHTTPProbeClient(timeout time.Duration, log logger.Logger) *HTTPProbeClient {
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPProbeClient{
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

func (*HTTPProbeClient) Family() models.ProtocolFamily {
	return models.ProtocolHTTPProbe
}

func (c *HTTPProbeClient) Collect(ctx context.Context, addr string, _ models.Credential) (*models.DeviceRecord, *models.Failure) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/", addr), http.NoBody)
	if err != nil {
		return nil, &models.Failure{Kind: models.FailureProtocol, Message: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failureFromErr(err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("Failed to close HTTP probe body")
		}
	}()

	record := &models.DeviceRecord{
		Address:      addr,
		ProtocolUsed: string(models.ProtocolHTTPProbe),
		Fields:       make(map[string]string, 3),
		CollectedAt:  time.Now(),
	}

	record.Fields["http_status"] = fmt.Sprintf("%d", resp.StatusCode)

	if server := resp.Header.Get("Server"); server != "" {
		record.Fields["http_server"] = server
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<15))
	if err == nil {
		if m := titlePattern.FindSubmatch(body); m != nil {
			title := strings.TrimSpace(string(m[1]))
			if title != "" {
				record.Fields["http_title"] = title
			}
		}
	}

	return record, nil
}
