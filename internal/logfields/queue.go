package logfields

import "go.uber.org/zap"

func QueueKey(val string) zap.Field {
	return zap.String("queue.key", val)
}
