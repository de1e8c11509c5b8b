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
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
)

const (
	defaultSNMPPort    = 161
	defaultSNMPTimeout = 3 * time.Second
	snmpRetries        = 1
)

// System-group and entity OIDs collected per device.
var snmpOIDs = map[string]string{
	"sysDescr":    "1.3.6.1.2.1.1.1.0",
	"sysObjectID": "1.3.6.1.2.1.1.2.0",
	"sysContact":  "1.3.6.1.2.1.1.4.0",
	"sysName":     "1.3.6.1.2.1.1.5.0",
	"sysLocation": "1.3.6.1.2.1.1.6.0",
	"serial":      "1.3.6.1.2.1.47.1.1.1.1.11.1", // entPhysicalSerialNum
}

// SNMPClient collects network gear over SNMP v2c.
type SNMPClient struct {
	port    uint16
	timeout time.Duration
	logger  logger.Logger
}

func NewSNMPClient(timeout time.Duration, log logger.Logger) *SNMPClient {
	if timeout == 0 {
		timeout = defaultSNMPTimeout
	}

	return &SNMPClient{
		port:    defaultSNMPPort,
		timeout: timeout,
		logger:  log,
	}
}

func (*SNMPClient) Family() models.ProtocolFamily {
	return models.ProtocolNetworkManagement
}

func (c *SNMPClient) Collect(ctx context.Context, addr string, cred models.Credential) (*models.DeviceRecord, *models.Failure) {
	community := cred.Community
	if community == "" {
		community = "public"
	}

	conn := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    addr,
		Port:      c.port,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   c.timeout,
		Retries:   snmpRetries,
	}

	if err := conn.Connect(); err != nil {
		return nil, failureFromErr(err)
	}

	defer func() {
		if err := conn.Conn.Close(); err != nil {
			c.logger.Debug().Err(err).Str("addr", addr).Msg("Failed to close SNMP connection")
		}
	}()

	names := make([]string, 0, len(snmpOIDs))
	oids := make([]string, 0, len(snmpOIDs))

	for name, oid := range snmpOIDs {
		names = append(names, name)
		oids = append(oids, oid)
	}

	result, err := conn.Get(oids)
	if err != nil {
		return nil, failureFromErr(err)
	}

	record := &models.DeviceRecord{
		Address:      addr,
		ProtocolUsed: string(models.ProtocolNetworkManagement),
		Fields:       make(map[string]string, len(snmpOIDs)),
		CollectedAt:  time.Now(),
	}

	for i, variable := range result.Variables {
		if i >= len(names) {
			break
		}

		value := snmpValueString(variable)
		if value == "" {
			continue
		}

		switch names[i] {
		case "sysName":
			record.Hostname = value
		case "serial":
			record.SerialNumber = value
		default:
			record.Fields[names[i]] = value
		}
	}

	if record.Hostname == "" && len(record.Fields) == 0 {
		return nil, &models.Failure{
			Kind:    models.FailureProtocol,
			Message: "snmp agent returned no usable system variables",
		}
	}

	return record, nil
}

func snmpValueString(v gosnmp.SnmpPDU) string {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return strings.TrimSpace(string(b))
		}
	case gosnmp.ObjectIdentifier:
		if s, ok := v.Value.(string); ok {
			return s
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
		return ""
	default:
	}

	return ""
}
