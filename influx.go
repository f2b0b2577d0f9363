package multiio

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultInfluxMeasurement = "multiio"

// InfluxExport writes the card status as a point on every sensors sync.
type InfluxExport struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string
}

type influxWriter struct {
	client      influxdb2.Client
	writeApi    api.WriteAPIBlocking
	name        string
	measurement string
}

// StartInflux checks the InfluxDB server and enables the status export.
func (mio *MultiIO) StartInflux(ctx context.Context) error {
	if mio.Influx == nil {
		return errors.New("influx export not configured")
	}

	client := influxdb2.NewClient(mio.Influx.Host, mio.Influx.Token)
	ok, err := client.Ready(ctx)
	if err != nil {
		client.Close()
		return errors.Wrapf(err, "influx server %s not reachable", mio.Influx.Host)
	}
	if !ok {
		client.Close()
		return errors.Errorf("influx server %s not ready", mio.Influx.Host)
	}

	measurement := mio.Influx.Measurement
	if len(measurement) == 0 {
		measurement = defaultInfluxMeasurement
	}

	mio.influx = &influxWriter{
		client:      client,
		writeApi:    client.WriteAPIBlocking(mio.Influx.Organization, mio.Influx.Bucket),
		name:        mio.mqttName(),
		measurement: measurement,
	}
	return nil
}

func statusPoint(measurement, name string, status Status) *write.Point {
	tags := map[string]string{
		"name":  name,
		"stack": strconv.Itoa(status.Stack),
	}

	fields := map[string]interface{}{}
	addFloats := func(prefix string, values []float64) {
		for i, v := range values {
			fields[fmt.Sprintf("%s%d", prefix, i+1)] = v
		}
	}
	if _, failed := status.Errors["analog in"]; !failed {
		addFloats("uin", status.VoltageIn)
		addFloats("iin", status.CurrentIn)
	}
	if _, failed := status.Errors["analog out"]; !failed {
		addFloats("uout", status.VoltageOut)
		addFloats("iout", status.CurrentOut)
	}
	if _, failed := status.Errors["rtd"]; !failed {
		addFloats("rtd", status.Rtd)
	}
	if _, failed := status.Errors["counters"]; !failed {
		for i, count := range status.Counts {
			fields[fmt.Sprintf("opto_count%d", i+1)] = int64(count)
		}
	}
	if _, failed := status.Errors["relays"]; !failed {
		for i, state := range status.Relays {
			fields[fmt.Sprintf("relay%d", i+1)] = state
		}
	}
	if _, failed := status.Errors["servo motor"]; !failed {
		fields["motor"] = status.Motor
	}

	return influxdb2.NewPoint(measurement, tags, fields, status.Taken)
}

func (iw *influxWriter) write(ctx context.Context, status Status) error {
	if !status.Connected {
		return errors.New("card not connected, nothing to write")
	}
	return iw.writeApi.WritePoint(ctx, statusPoint(iw.measurement, iw.name, status))
}

func (iw *influxWriter) close() {
	iw.client.Close()
}
