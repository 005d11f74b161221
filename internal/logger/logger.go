package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log по умолчанию пишет в stderr с уровнем info, чтобы сервисы и тесты
// могли логировать до вызова Init.
var Log = logrus.New()

// Init настраивает уровень и формат логов. JSON для production, текст для локальной разработки.
func Init(level string, jsonFormat bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
	Log.SetOutput(os.Stdout)

	if jsonFormat {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
