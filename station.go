package main

import (
	"io"
	"sagebot/aphorism"
	"sagebot/aprs"
	"sagebot/config"
	"sagebot/device/aprsis"
	"sagebot/device/monitor"
	"sagebot/log"
	"sagebot/schedule"
	"time"

	"github.com/juju/errors"
	"k8s.io/utils/clock"
)

// houseSymbol is the primary-table QTH symbol used for the beacon.
var houseSymbol = aprs.Symbol{Table: '/', Code: '-'}

// station is everything the poll loop drives.
type station struct {
	client    *aprsis.Client
	scheduler *schedule.Scheduler
	location  *time.Location
	clock     clock.PassiveClock
	closers   []io.Closer
}

func (s *station) Close() {
	if s.client != nil {
		s.client.Close()
	}
	for _, c := range s.closers {
		c.Close()
	}
}

// newStation wires the APRS-IS client to the scheduler, the aphorism deck,
// the optional serial monitor and the optional beacon.
func newStation(conf config.Config, logger log.Logger) (*station, error) {
	loc, err := time.LoadLocation(conf.Schedule.Timezone)
	if err != nil {
		return nil, errors.Annotatef(err, "timezone %q", conf.Schedule.Timezone)
	}
	morning, err := schedule.ParseClock(schedule.Morning.Name, schedule.Morning.ID, conf.Schedule.Morning)
	if err != nil {
		return nil, err
	}
	evening, err := schedule.ParseClock(schedule.Evening.Name, schedule.Evening.ID, conf.Schedule.Evening)
	if err != nil {
		return nil, err
	}
	deck, err := aphorism.Load(conf.Aphorisms.File)
	if err != nil {
		return nil, errors.Annotatef(err, "aphorisms %s", conf.Aphorisms.File)
	}
	logger.Info("aphorisms loaded", "file", conf.Aphorisms.File, "lines", deck.Len())

	s := &station{
		scheduler: schedule.New(morning, evening),
		location:  loc,
		clock:     clock.RealClock{},
	}

	var tap io.Writer
	if conf.Monitor.Device != "" {
		port, err := monitor.Open(conf.Monitor.Device, conf.Monitor.Baud)
		if err != nil {
			return nil, err
		}
		logger.Info("mirroring traffic to serial port", "device", port.Device(), "baud", conf.Monitor.Baud)
		tap = port
		s.closers = append(s.closers, port)
	}

	beacon, err := beaconFrame(conf)
	if err != nil {
		return nil, err
	}

	creds := aprsis.Credentials{
		Callsign: conf.Station.Callsign,
		Passcode: conf.Station.Passcode,
		Software: conf.Client.Software,
		Version:  conf.Client.Version,
		Filter:   conf.Filter(),
	}
	s.client, err = aprsis.NewClient(creds, aprsis.Options{
		Addr:            conf.Addr(),
		DialTimeout:     conf.Server.DialTimeout,
		GreetingTimeout: conf.Server.GreetingTimeout,
		LogonTimeout:    conf.Server.LogonTimeout,
		IdleTimeout:     conf.Server.IdleTimeout,
		Clock:           s.clock,
		Logger:          logger,
		Tap:             tap,
		Scheduler:       s.scheduler,
		Location:        loc,
		Text:            deck,
		Beacon:          beacon,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// beaconFrame is the position report sent after each login, or "" when
// beaconing is off.
func beaconFrame(conf config.Config) (string, error) {
	if !conf.Station.Beacon {
		return "", nil
	}
	lat, lon, ok, err := conf.StationPosition()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.NotValidf("beacon enabled without lat/lon or gridsquare")
	}
	return aprs.FormatPosition(conf.Station.Callsign, lat, lon, houseSymbol, conf.Station.Comment), nil
}
