// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fetch

import (
	"runtime"
	"time"
)

// DefaultReportInterval is the number of documents between progress reports.
const DefaultReportInterval = 500

// Config holds the tunables of a Fetcher in one place for callers that read
// them from flags or files.
type Config struct {
	BatchSize      int
	PageSize       int
	PoolSize       int
	MaxPages       int
	Profile        string
	Timeout        time.Duration
	Verify         bool
	ReportInterval int
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		PageSize:       DefaultPageSize,
		PoolSize:       max(runtime.NumCPU()/2, 1),
		Profile:        DefaultProfile,
		ReportInterval: DefaultReportInterval,
	}
}

// Options converts the config into Fetcher options. Zero values keep the
// Fetcher defaults.
func (c *Config) Options() []Option {
	var opts []Option
	if c.BatchSize != 0 {
		opts = append(opts, WithBatchSize(c.BatchSize))
	}
	if c.PageSize != 0 {
		opts = append(opts, WithPageSize(c.PageSize))
	}
	if c.PoolSize != 0 {
		opts = append(opts, WithPoolSize(c.PoolSize))
	}
	if c.MaxPages != 0 {
		opts = append(opts, WithMaxPages(c.MaxPages))
	}
	if c.Profile != "" {
		opts = append(opts, WithProfile(c.Profile))
	}
	if c.Timeout != 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.Verify {
		opts = append(opts, WithVerification(true))
	}
	if c.ReportInterval != 0 {
		opts = append(opts, WithReportInterval(c.ReportInterval))
	}
	return opts
}
