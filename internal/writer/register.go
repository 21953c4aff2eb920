package writer

import "Go2WlanSpectra/internal/factory"

func init() {
	factory.RegisterWriter("text", newTextWriter)
	factory.RegisterWriter("gob", newGobWriter)
	factory.RegisterWriter("clickhouse", newClickHouseWriter)
}
