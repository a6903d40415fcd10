package viz

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server renders registered producers periodically and serves the images
// over HTTP, grouped into named buckets.
type Server struct {
	mu              sync.RWMutex
	images          map[string]map[string]*ImageContainer
	producerBuckets map[string]map[string]Producer
	srv             *http.Server
	updateInterval  time.Duration
	enabled         bool
	logger          zerolog.Logger
}

func NewServer(port int, updateInterval time.Duration) *Server {
	s := &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		srv:             &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval:  updateInterval,
		enabled:         true,
		logger:          log.Logger,
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Enable(enable bool) {
	s.mu.Lock()
	s.enabled = enable
	s.mu.Unlock()
}

func (s *Server) Register(bucket string, p Producer) {
	s.mu.Lock()
	producers, ok := s.producerBuckets[bucket]
	if !ok {
		producers = make(map[string]Producer)
		s.producerBuckets[bucket] = producers
	}
	producers[p.Name()] = p
	s.mu.Unlock()
}

// Render refreshes every image once.
func (s *Server) Render() {
	s.mu.RLock()
	enabled := s.enabled
	type job struct {
		bucket string
		p      Producer
	}
	var jobs []job
	for bucket, producers := range s.producerBuckets {
		for _, p := range producers {
			jobs = append(jobs, job{bucket, p})
		}
	}
	s.mu.RUnlock()

	if !enabled {
		return
	}

	for _, j := range jobs {
		img, err := j.p.GetImage()
		if err != nil {
			s.logger.Warn().Err(err).Str("plot", j.p.Name()).Msg("error rendering plot")
			continue
		}
		if img == nil {
			continue
		}

		s.mu.Lock()
		images, ok := s.images[j.bucket]
		if !ok {
			images = make(map[string]*ImageContainer)
			s.images[j.bucket] = images
		}
		images[img.name] = img
		s.mu.Unlock()
	}
}

func (s *Server) Image(bucket, name string) (*ImageContainer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[bucket][name]
	return img, ok
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		buckets := s.bucketNames()
		if len(buckets) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, r, "/view/"+buckets[0], http.StatusFound)
	})

	handler.GET("/view/:bucket", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucket := params.ByName("bucket")

		s.mu.RLock()
		producers, ok := s.producerBuckets[bucket]
		names := make([]string, 0, len(producers))
		for name := range producers {
			names = append(names, name)
		}
		s.mu.RUnlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sort.Strings(names)

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>FM Gateway</title>
<script type="text/javascript">
window.onload = function() {
	setInterval(function() {
		for (const img of document.getElementsByTagName('img')) {
			img.src = img.src.split("?")[0] + "?" + new Date().getTime();
		}
	}, %d);
}
</script></head><body style='background-color: black'>`, s.updateInterval.Milliseconds())

		for _, b := range s.bucketNames() {
			fmt.Fprintf(w, `<a style='color: white' href="/view/%s">%s</a> `, b, b)
		}
		w.Write([]byte(`<div style="display: flex; flex-direction: row; flex-wrap: wrap">`))
		for _, name := range names {
			fmt.Fprintf(w, `<div><img src="/img/%s/%s" /></div>`, bucket, name)
		}
		w.Write([]byte(`</div></body></html>`))
	})

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		img, ok := s.Image(params.ByName("bucket"), params.ByName("img"))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img.data)
	})

	return handler
}

func (s *Server) bucketNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]string, 0, len(s.producerBuckets))
	for name := range s.producerBuckets {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Run renders on every update interval and serves HTTP until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		tick := time.NewTicker(s.updateInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				s.Render()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
