// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	// #nosec
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// serdeNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	serdeNamespace = "serde"

	// 以下为当前使用的通用标签名。
	directionLabelName = "direction"
	formatLabelName    = "format"
	statusLabelName    = "status"
	classLabelName     = "class"

	StatusSuccess = "success"
	StatusFail    = "fail"
)

var (
	// buckets 为操作耗时直方图的桶划分，单位为微秒。
	// 实际桶分布为：
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768 65536 1.31072e+05]
	buckets = prometheus.ExponentialBuckets(1, 2, 18)

	// depthBuckets 为对象图遍历深度的桶划分。
	depthBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128}

	// sizeBuckets 为文档大小的桶划分，单位为字节。
	sizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216}

	OperationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Name:      "operation_total",
			Help:      "number of serialization and deserialization operations",
		}, []string{directionLabelName, formatLabelName, statusLabelName})

	OperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serdeNamespace,
			Name:      "operation_latency",
			Help:      "latency of serialization and deserialization operations in microseconds",
			Buckets:   buckets,
		}, []string{directionLabelName, formatLabelName})

	GraphDepth = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serdeNamespace,
			Name:      "graph_depth",
			Help:      "maximum depth reached while navigating an object graph",
			Buckets:   depthBuckets,
		}, []string{directionLabelName})

	DocumentBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: serdeNamespace,
			Name:      "document_bytes",
			Help:      "size of produced or consumed documents in bytes",
			Buckets:   sizeBuckets,
		}, []string{directionLabelName, formatLabelName})

	HandlerInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Name:      "handler_invocations",
			Help:      "number of custom handler invocations replacing default navigation",
		}, []string{directionLabelName, formatLabelName})

	MetadataLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Name:      "metadata_loads",
			Help:      "number of class metadata lookups against the provider",
		}, []string{classLabelName})

	FastPathCompilations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: serdeNamespace,
			Name:      "fastpath_compilations",
			Help:      "number of per-class access plans compiled and memoized",
		})

	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(OperationTotal)
	r.MustRegister(OperationLatency)
	r.MustRegister(GraphDepth)
	r.MustRegister(DocumentBytes)
	r.MustRegister(HandlerInvocations)
	r.MustRegister(MetadataLoads)
	r.MustRegister(FastPathCompilations)
	metricRegisterer = r
}
