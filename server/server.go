// Package server exposes the Views of a registry over HTTP.
//
//   GET /views                     lists the registered views
//   GET /views/:name               returns a view's data
//       ?start=&end=               restricts to a genomic range (inclusive)
//       ?region=chrom:start-end    same, as a region string
//       ?strand=-                  reverse-complements bases, reverses numbers
//                                  ("+", the default, must be sent as %2B)
//
// Every response carries an X-Request-Id header; a request id sent by the
// client is echoed back.
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/registry"
	"github.com/grailbio/tracks/track"
	pkgerrors "github.com/pkg/errors"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = "X-Request-Id"

const requestIDKey = "requestID"

// Server serves the Views of Registry.
type Server struct {
	Registry *registry.Registry
	engine   *gin.Engine
}

// New returns a Server for reg.
func New(reg *registry.Registry) *Server {
	s := &Server{Registry: reg, engine: gin.New()}
	s.engine.Use(requestID, gin.Recovery())
	s.engine.GET("/views", s.listViews)
	s.engine.GET("/views/:name", s.getView)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// Run listens on addr and serves requests until an error occurs.
func (s *Server) Run(addr string) error {
	log.Printf("server: listening on %s", addr)
	return s.engine.Run(addr)
}

func requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(requestIDKey, id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

// ViewInfo describes a registered View.
type ViewInfo struct {
	Name  string `json:"name"`
	Chrom string `json:"chrom"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind"`
	State string `json:"state"`
}

// ViewData is the response to GET /views/:name.  Exactly one of Sequence,
// Values and Regions is set, depending on Kind.
type ViewData struct {
	ViewInfo
	Strand   string       `json:"strand"`
	Sequence string       `json:"sequence,omitempty"`
	Values   []float64    `json:"values,omitempty"`
	Regions  []RegionData `json:"regions,omitempty"`
}

// RegionData is a region in genomic coordinates.
type RegionData struct {
	Start  int          `json:"start"`
	End    int          `json:"end"`
	Label  string       `json:"label,omitempty"`
	Score  float64      `json:"score"`
	Strand string       `json:"strand"`
	Nested []RegionData `json:"nested,omitempty"`
}

func regionData(r track.Region, v track.View) RegionData {
	d := RegionData{
		Start:  v.RelativeToGenomic(r.Start),
		End:    v.RelativeToGenomic(r.End),
		Label:  r.Label,
		Score:  r.Score,
		Strand: string(r.Orientation.Byte()),
	}
	for _, n := range r.Nested {
		d.Nested = append(d.Nested, regionData(n, v))
	}
	return d
}

func (s *Server) info(name string) (ViewInfo, track.View, error) {
	v, err := s.Registry.View(name)
	if err != nil {
		return ViewInfo{}, nil, err
	}
	state, err := s.Registry.State(name)
	if err != nil {
		return ViewInfo{}, nil, err
	}
	iv := v.Interval()
	return ViewInfo{
		Name:  name,
		Chrom: iv.Chrom,
		Start: iv.Start,
		End:   iv.End,
		Kind:  v.Kind().String(),
		State: state.String(),
	}, v, nil
}

func (s *Server) listViews(c *gin.Context) {
	names := s.Registry.Names()
	infos := make([]ViewInfo, 0, len(names))
	for _, name := range names {
		info, _, err := s.info(name)
		if err != nil {
			// Removed since Names was called.
			continue
		}
		infos = append(infos, info)
	}
	c.JSON(http.StatusOK, infos)
}

func fail(c *gin.Context, code int, err error) {
	id, _ := c.Get(requestIDKey)
	if code >= http.StatusInternalServerError {
		log.Error.Printf("server: request %v: %v", id, err)
	} else if log.At(log.Debug) {
		log.Debug.Printf("server: request %v: %v", id, err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error(), "requestId": id})
}

// queryRange returns the genomic range requested by c.  The view's
// interval is used for missing bounds.
func queryRange(c *gin.Context, iv interval.GenomicInterval) (interval.GenomicInterval, error) {
	if region := c.Query("region"); region != "" {
		return interval.ParseRegionString(region)
	}
	var err error
	if start := c.Query("start"); start != "" {
		if iv.Start, err = strconv.Atoi(start); err != nil {
			return iv, err
		}
	}
	if end := c.Query("end"); end != "" {
		if iv.End, err = strconv.Atoi(end); err != nil {
			return iv, err
		}
	}
	if iv.End < iv.Start {
		return iv, pkgerrors.Wrapf(track.ErrInvertedRange, "range %d-%d", iv.Start, iv.End)
	}
	return iv, nil
}

func (s *Server) getView(c *gin.Context) {
	info, v, err := s.info(c.Param("name"))
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			fail(c, http.StatusNotFound, err)
		} else {
			fail(c, http.StatusInternalServerError, err)
		}
		return
	}
	req, err := queryRange(c, v.Interval())
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	strand := track.StrandDirect
	switch st := c.DefaultQuery("strand", "+"); st {
	case "+", "-":
		strand = track.ParseStrand(st[0])
	default:
		fail(c, http.StatusBadRequest, errors.E(errors.Invalid, "strand must be + or -"))
		return
	}
	if req.Chrom != info.Chrom {
		fail(c, http.StatusRequestedRangeNotSatisfiable,
			errors.E(errors.NotExist, "view", info.Name, "is on", info.Chrom))
		return
	}

	data := ViewData{ViewInfo: info, Strand: string(strand.Byte())}
	switch v := v.(type) {
	case *track.DNAView:
		var seq []byte
		if seq, err = v.ValuesInGenomicInterval(req.Start, req.End); err == nil {
			data.Sequence = string(track.OrientBytes(seq, strand))
		}
	case *track.NumericView:
		var values []float64
		if values, err = v.ValuesInGenomicInterval(req.Start, req.End); err == nil {
			data.Values = track.OrientNumbers(values, strand)
		}
	case *track.RegionView:
		var regions []track.Region
		if regions, err = v.RegionsInGenomicInterval(req.Start, req.End); err == nil {
			data.Regions = make([]RegionData, 0, len(regions))
			for _, r := range regions {
				data.Regions = append(data.Regions, regionData(r, v))
			}
		}
	}
	if err != nil {
		if pkgerrors.Cause(err) == track.ErrNoData {
			fail(c, http.StatusRequestedRangeNotSatisfiable, err)
		} else {
			fail(c, http.StatusInternalServerError, err)
		}
		return
	}
	clamped, _ := v.Interval().Clamp(req.Start, req.End)
	data.Start, data.End = clamped.Start, clamped.End
	c.JSON(http.StatusOK, data)
}
