/*
Copyright 2026 Dima Krasner

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package block

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var blockDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedcore_block_decisions",
	Help: "Block list checks by check and result",
}, []string{"check", "result"})

var lockdownTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedcore_lockdown_transitions",
	Help: "Lockdown mode state changes",
}, []string{"state"})

func observe(check string, blocked bool) bool {
	if blocked {
		blockDecisions.WithLabelValues(check, "blocked").Inc()
	} else {
		blockDecisions.WithLabelValues(check, "allowed").Inc()
	}
	return blocked
}
