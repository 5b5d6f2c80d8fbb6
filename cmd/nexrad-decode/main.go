package main

import (
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/jddeal/nexrad-l2/archive2"
)

var cli struct {
	Args struct {
		Filename string
	} `positional-args:"yes" required:"yes"`
	LogLevel         string `short:"l" long:"log-level" description:"logging level" choice:"error" choice:"info" choice:"debug" choice:"trace" default:"info"`
	ReadMode         string `short:"m" long:"read-mode" description:"how much of the volume to decompress" choice:"all" choice:"all-meta" choice:"min-meta" default:"all"`
	Moments          string `long:"moments" description:"comma-separated moment tags to decode, default all"`
	ShowVolumeHeader bool   `long:"show-volume-header" description:"dumps out the contents of the Volume Header"`
	Progress         bool   `long:"progress" description:"show a progress bar while decompressing"`
}

var readModes = map[string]archive2.ReadMode{
	"all":      archive2.ReadAll,
	"all-meta": archive2.ReadAllMeta,
	"min-meta": archive2.ReadMinMeta,
}

func main() {
	if _, err := flags.Parse(&cli); err != nil {
		os.Exit(1)
	}

	errorLevels := map[string]logrus.Level{
		"error": logrus.ErrorLevel,
		"info":  logrus.InfoLevel,
		"debug": logrus.DebugLevel,
		"trace": logrus.TraceLevel,
	}
	logrus.SetLevel(errorLevels[cli.LogLevel])

	logrus.Info(color.CyanString("decoding %s", cli.Args.Filename))

	var bar *pb.ProgressBar
	if cli.Progress {
		bar = pb.New(1)
		bar.Start()
		defer bar.Finish()
	}

	dec, err := archive2.Open(cli.Args.Filename)
	if err != nil {
		logrus.Fatal(err)
	}
	defer dec.Close()

	vf, err := dec.Decode(archive2.Config{Mode: readModes[cli.ReadMode], Moments: parseMoments(cli.Moments)})
	if err != nil {
		logrus.Fatal(err)
	}
	if bar != nil {
		bar.Increment()
	}

	if cli.ShowVolumeHeader {
		fmt.Printf("%s @ %v\n", vf.VolumeHeader.Filename(), vf.VolumeHeader.Date())
	}

	logrus.Infof("%s radials across %d scans (msg type %d, compression=%s)",
		color.GreenString("%d", len(vf.RadialRecords)), len(vf.Scans), vf.MsgType, vf.Compression)

	for _, info := range vf.ScanInfo(nil) {
		logrus.Debugf("  scan %2d: elevation %2d, %d radials", info.Scan, info.ElevationNumber, info.NumRadials)
	}
}

func parseMoments(csv string) map[string]bool {
	if csv == "" {
		return nil
	}
	out := make(map[string]bool)
	tag := ""
	for _, r := range csv + "," {
		if r == ',' {
			if tag != "" {
				out[tag] = true
			}
			tag = ""
			continue
		}
		tag += string(r)
	}
	return out
}
