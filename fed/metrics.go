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


package fed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedcore_fed_resolve",
	Help: "Handle and actor resolutions",
}, []string{"kind", "status"})

var resolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fedcore_fed_resolve_duration",
	Help:    "Time to resolve a handle or an actor",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 30, 20),
}, []string{"kind", "status"})

var sends = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedcore_fed_send_via_server",
	Help: "Activities sent through the sender's server, by result code",
}, []string{"code"})

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fedcore_fed_deliveries",
	Help: "Signed deliveries to remote inboxes",
}, []string{"status"})

var deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fedcore_fed_delivery_duration",
	Help:    "Time to deliver an activity to a remote inbox",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 60, 20),
}, []string{"status"})
