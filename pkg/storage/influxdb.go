package storage

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"stockprep/pkg/provider/core"
)

// InfluxBarWriter 将同步到的K线镜像写入 InfluxDB，供监控面板消费。
// 只做写入旁路，不参与新鲜度判断的读路径。
type InfluxBarWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// InfluxBarWriterConfig InfluxDB 写入配置
type InfluxBarWriterConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// NewInfluxBarWriter 创建 InfluxDB 写入器。
func NewInfluxBarWriter(config InfluxBarWriterConfig) *InfluxBarWriter {
	client := influxdb2.NewClient(config.URL, config.Token)
	return &InfluxBarWriter{
		client:   client,
		writeAPI: client.WriteAPI(config.Org, config.Bucket),
	}
}

// WriteBars 异步写入K线数据点。
func (w *InfluxBarWriter) WriteBars(bars []core.Bar) {
	for _, bar := range bars {
		point := influxdb2.NewPointWithMeasurement("stock_daily_bar").
			AddTag("symbol", bar.Symbol).
			AddTag("source", bar.Source).
			AddField("open", bar.Open).
			AddField("high", bar.High).
			AddField("low", bar.Low).
			AddField("close", bar.Close).
			AddField("volume", bar.Volume).
			AddField("turnover", bar.Turnover).
			SetTime(bar.TradeDate)
		w.writeAPI.WritePoint(point)
	}
}

// Flush 等待缓冲区内的数据点写完。
func (w *InfluxBarWriter) Flush() {
	w.writeAPI.Flush()
}

// Close 关闭 InfluxDB 客户端。
func (w *InfluxBarWriter) Close() {
	w.writeAPI.Flush()
	w.client.Close()
}
