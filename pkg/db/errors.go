/*
 * Copyright 2025 Carver Automation Corporation.
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

package db

import "errors"

var (
	ErrDatabaseError  = errors.New("database error")
	ErrFailedToScan   = errors.New("failed to scan")
	ErrFailedToQuery  = errors.New("failed to query")
	ErrFailedToInsert = errors.New("failed to insert")
	ErrFailedToInit   = errors.New("failed to initialize schema")

	ErrDeviceIDRequired = errors.New("device id is required")
	ErrActionRequired   = errors.New("audit action is required")
	ErrInvalidThreshold = errors.New("threshold must be a finite number")

	ErrCNPGConfigRequired = errors.New("cnpg configuration is required")
	ErrCNPGTLSDisabled    = errors.New("cnpg tls is configured but sslmode is disable")
	ErrCNPGTLSIncomplete  = errors.New("cnpg tls: cert_file, key_file, and ca_file are required")
	ErrCNPGCAAppend       = errors.New("cnpg tls: unable to append CA certificate")
)
