// Package logger configures the structured logger used by every stage
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a text logger writing to stdout at the given level
func New(level string) (*logrus.Logger, error) {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput creates a text logger writing to out at the given level
func NewWithOutput(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return log, nil
}
