package server

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/QuocDuong16/headscale-dashboard/pkg/httpx"
)

// AboutInfo describes the running dashboard for the About view and for
// support requests.
type AboutInfo struct {
	Version   string     `json:"version"`
	ServerURL string     `json:"serverUrl"`
	Upstream  bool       `json:"upstreamConfigured"`
	System    SystemInfo `json:"system"`
	Process   ProcInfo   `json:"process"`
	Cache     CacheInfo  `json:"cache"`
}

// SystemInfo represents basic host information
type SystemInfo struct {
	Hostname     string `json:"hostname"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
	Kernel       string `json:"kernel"`
	Uptime       int64  `json:"uptime"`
	MemoryTotal  string `json:"memory_total"`
	MemoryUsed   string `json:"memory_used"`
	Timezone     string `json:"timezone"`
}

type ProcInfo struct {
	GoVersion  string    `json:"go_version"`
	Goroutines int       `json:"goroutines"`
	RSS        string    `json:"rss"`
	Started    time.Time `json:"started"`
	Uptime     string    `json:"uptime"`
}

type CacheInfo struct {
	Sessions int `json:"sessions"`
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	_, upstreamErr := s.cfg.Upstream()
	info := AboutInfo{
		Version:   Version,
		ServerURL: s.cfg.ServerURL(),
		Upstream:  upstreamErr == nil,
		System:    systemInfo(),
		Process:   s.procInfo(),
		Cache:     CacheInfo{Sessions: s.caches.Len()},
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

func systemInfo() SystemInfo {
	info := SystemInfo{
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
		Timezone:     time.Local.String(),
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	if hostInfo, err := host.Info(); err == nil {
		info.Kernel = hostInfo.KernelVersion
		info.Uptime = int64(hostInfo.Uptime)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = humanize.Bytes(vm.Total)
		info.MemoryUsed = humanize.Bytes(vm.Used)
	}
	return info
}

func (s *Server) procInfo() ProcInfo {
	info := ProcInfo{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		Started:    s.started,
		Uptime:     strings.TrimSpace(humanize.RelTime(s.started, time.Now(), "", "")),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			info.RSS = humanize.Bytes(mi.RSS)
		}
	}
	return info
}
