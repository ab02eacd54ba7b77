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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/noiseradar/pkg/logger"
)

var (
	ErrDstMustBeNonNilPointer   = errors.New("dst must be a non-nil pointer")
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

// EnvConfigLoader maps json tags onto upper-cased variable names, joining
// nested sections with underscores: mqtt.broker_url reads
// NOISERADAR_MQTT_BROKER_URL. A whole document can also be supplied through
// <prefix>CONFIG_JSON.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
	lookup func(string) (string, bool)
}

func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	if log == nil {
		log = createBasicLogger()
	}

	return &EnvConfigLoader{logger: log, prefix: prefix, lookup: os.LookupEnv}
}

func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	if doc, ok := e.get(e.prefix + "CONFIG_JSON"); ok {
		if err := json.Unmarshal([]byte(doc), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		e.logger.Info().Msg("Loaded configuration from CONFIG_JSON")

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	if v.Elem().Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	n := e.fill(v.Elem(), e.prefix)
	e.logger.Info().Int("variables", n).Msg("Loaded configuration from environment")

	return nil
}

func (e *EnvConfigLoader) get(name string) (string, bool) {
	value, ok := e.lookup(name)
	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// fill walks the exported, json-tagged fields of v and returns how many
// variables were applied. Malformed values are logged and skipped.
func (e *EnvConfigLoader) fill(v reflect.Value, prefix string) int {
	applied := 0

	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		tag, _, _ := strings.Cut(v.Type().Field(i).Tag.Get("json"), ",")
		if tag == "" || tag == "-" {
			continue
		}

		name := prefix + strings.ToUpper(strings.ReplaceAll(tag, ".", "_"))

		switch {
		case field.Kind() == reflect.Struct && !isDuration(field.Type()):
			applied += e.fill(field, name+"_")
		case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
			applied += e.fillOptional(field, name+"_")
		default:
			raw, ok := e.get(name)
			if !ok {
				continue
			}

			if err := assign(field, raw); err != nil {
				e.logger.Warn().Str("env", name).Err(err).Msg("Ignoring malformed environment variable")
				continue
			}

			applied++
		}
	}

	return applied
}

// fillOptional allocates a nil section only when one of its variables is set.
func (e *EnvConfigLoader) fillOptional(field reflect.Value, prefix string) int {
	if !field.IsNil() {
		return e.fill(field.Elem(), prefix)
	}

	section := reflect.New(field.Type().Elem())

	n := e.fill(section.Elem(), prefix)
	if n > 0 {
		field.Set(section)
	}

	return n
}

func isDuration(t reflect.Type) bool {
	return t.Kind() == reflect.Int64 && strings.HasSuffix(t.Name(), "Duration")
}

func assign(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Ptr {
		target := reflect.New(field.Type().Elem())
		if err := assign(target.Elem(), raw); err != nil {
			return err
		}

		field.Set(target)

		return nil
	}

	switch kind := field.Kind(); {
	case kind == reflect.String:
		field.SetString(raw)
	case kind == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case isDuration(field.Type()):
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}

		field.SetInt(int64(d))
	case field.CanInt():
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}

		field.SetInt(n)
	case field.CanUint():
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}

		field.SetUint(n)
	case field.CanFloat():
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}

		field.SetFloat(f)
	case kind == reflect.Slice && field.Type().Elem().Kind() == reflect.String && !strings.HasPrefix(raw, "["):
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		field.Set(reflect.ValueOf(parts).Convert(field.Type()))
	default:
		if err := json.Unmarshal([]byte(raw), field.Addr().Interface()); err != nil {
			return fmt.Errorf("unsupported %s value: %w", kind, err)
		}
	}

	return nil
}
