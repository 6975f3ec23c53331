package mapsdk

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "mapsdk")
