package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jddeal/nexrad-l2/archive2"
	"github.com/jddeal/nexrad-l2/internal/s3source"
)

// volumeMeta is the JSON shape returned by the meta endpoints: one entry
// per scan, carrying just enough to drive a client-side product picker
// without shipping the (potentially large) moment data.
type volumeMeta struct {
	Filename  string              `json:"filename"`
	Date      time.Time           `json:"date"`
	MsgType   int                 `json:"msg_type"`
	Scans     []archive2.ScanInfo `json:"scans"`
	Elevation []float64           `json:"target_elevation_deg,omitempty"`
}

func writeMeta(w http.ResponseWriter, vf *archive2.VolumeFile) {
	meta := volumeMeta{
		Filename: vf.VolumeHeader.Filename(),
		Date:     vf.VolumeHeader.Date(),
		MsgType:  vf.MsgType,
		Scans:    vf.ScanInfo(nil),
	}
	if angles, err := vf.GetTargetAngles(nil); err == nil {
		meta.Elevation = angles
	} else {
		logrus.Warn(err)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// archiveMetaHandler decodes a completed archive volume named like
// KOKX20210902_000428_V06, fetching it from NOAA's public archive bucket.
func archiveMetaHandler(w http.ResponseWriter, req *http.Request) {
	fn := mux.Vars(req)["fn"]

	if len(fn) < 19 {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	site := fn[:4]
	date, err := time.Parse("20060102_150405", fn[4:19])
	if err != nil {
		http.Error(w, "invalid filename: "+err.Error(), http.StatusBadRequest)
		return
	}

	client, err := s3source.NewClient()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	key := fmt.Sprintf("%s/%s/%s", date.Format("2006/01/02"), site, fn)
	data, err := client.FetchArchiveFile(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	vf, err := decodeBytes(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMeta(w, vf)
}

// realtimeMetaHandler decodes an in-progress volume assembled from the
// realtime chunk bucket.
func realtimeMetaHandler(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	site := vars["site"]
	volume, err := strconv.Atoi(vars["volume"])
	if err != nil {
		http.Error(w, "invalid volume number", http.StatusBadRequest)
		return
	}

	client, err := s3source.NewClient()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := client.FetchVolume(site, volume)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	vf, err := decodeBytes(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeMeta(w, vf)
}

func decodeBytes(data []byte) (*archive2.VolumeFile, error) {
	dec, err := archive2.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.Decode(archive2.Config{Mode: archive2.ReadAllMeta})
}
