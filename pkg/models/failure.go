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

package models

import "fmt"

// FailureKind classifies a protocol collection failure.
type FailureKind string

const (
	FailureAuth        FailureKind = "AuthFailed"
	FailureUnreachable FailureKind = "Unreachable"
	FailureTimeout     FailureKind = "Timeout"
	FailureProtocol    FailureKind = "ProtocolError"
)

// Failure is a typed collection failure, propagated as data rather than as an
// error value so worker loops can act on the kind without unwrapping chains.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
