package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Bootstrap must run before first use;
// package init keeps tests working without an explicit call.
var Log *logrus.Logger

func init() {
	Bootstrap()
}

// Bootstrap configures the logger from the environment. LOG_LEVEL accepts
// the logrus level names; anything unparsable falls back to info.
func Bootstrap() {
	Log = logrus.New()
	Log.Out = os.Stdout
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}
