package camera

// Mode is the presentation state of a camera's output. The two encoder
// pipelines run regardless of mode; mode only selects which one viewers see.
type Mode string

// Presentation modes.
const (
	ModeStandby Mode = "standby"
	ModeLive    Mode = "live"
)

// Status is a point-in-time view of one camera, fully derivable from
// current bundle state. The URL fields tell the frontend where to find each
// pipeline: HLS for the standby loop, go2rtc stream name for live.
type Status struct {
	ID           string `json:"id" example:"cam1" doc:"Camera identifier"`
	Name         string `json:"name" example:"Kamera 1" doc:"Display name"`
	Mode         Mode   `json:"mode" example:"standby" doc:"Current presentation mode"`
	StandbyURL   string `json:"standby_url" example:"/hls/cam1/standby/index.m3u8" doc:"HLS playlist of the standby loop"`
	WebRTCSource string `json:"webrtc_src" example:"cam1" doc:"go2rtc stream name for the live feed"`
	StandbyOK    bool   `json:"standby_ok" example:"true" doc:"Whether the standby encoder process is running"`
}
