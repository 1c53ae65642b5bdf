package httpapi

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/config"
	"call-insights-go/internal/http/handlers"
	"call-insights-go/internal/http/middleware"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// multipart framing around the audio file
const formOverhead = 1 << 20

var templateFuncs = template.FuncMap{
	"turns": func(st aggregator.Stats, sp string) int { return st.Turns[types.Speaker(sp)] },
	"share": func(st aggregator.Stats, sp string) string {
		return fmt.Sprintf("%.0f%%", st.TalkShare[types.Speaker(sp)]*100)
	},
	"speakerClass": func(s types.Speaker) string { return strings.ToLower(string(s)) },
	"timeLabel": func(u types.Utterance) string {
		switch {
		case u.Start != nil && u.End != nil:
			return transcript.FormatTimestamp(*u.Start) + "-" + transcript.FormatTimestamp(*u.End)
		case u.Start != nil:
			return transcript.FormatTimestamp(*u.Start)
		default:
			return ""
		}
	},
}

func Router(cfg config.Config, proc *processor.Processor, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = splitOrigins(cfg.CORSAllowed)
	}
	r.Use(cors.New(corsCfg))

	r.SetHTMLTemplate(template.Must(template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")))

	h := &handlers.Handler{
		Processor:   proc,
		Validator:   validator.New(),
		Logger:      log,
		MaxUploadMB: cfg.MaxUploadSizeMB,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/", h.Index)

	upload := middleware.BodyLimit(cfg.MaxUploadSizeMB<<20 + formOverhead)
	r.POST("/analyze", upload, h.AnalyzePage)

	api := r.Group("/api")
	{
		api.POST("/analyze", upload, h.AnalyzeAPI)
		api.POST("/parse/transcript", h.ParseTranscript)
		api.POST("/parse/analysis", h.ParseAnalysis)
	}

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
