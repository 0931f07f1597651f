package daemon

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/phase"
	"github.com/charlie0129/gastimer/pkg/version"
)

// ConfigRequest is the body of PUT /config and the response of GET /config.
type ConfigRequest struct {
	Sample phase.Config `json:"sample"`
	Wash   phase.Config `json:"wash"`
}

func abortWithError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, phase.ErrIllegalTransition):
		code = http.StatusConflict
	case errors.Is(err, phase.ErrConfiguration):
		code = http.StatusBadRequest
	}

	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func (d *Daemon) getSnapshot(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.ctl.Snapshot())
}

func (d *Daemon) getConfig(c *gin.Context) {
	sample, wash := d.ctl.Configs()
	c.IndentedJSON(http.StatusOK, ConfigRequest{Sample: sample, Wash: wash})
}

func (d *Daemon) setConfig(c *gin.Context) {
	var req ConfigRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.ctl.Configure(req.Sample, req.Wash); err != nil {
		abortWithError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"sampleTotal": req.Sample.TotalSeconds(),
		"washTotal":   req.Wash.TotalSeconds(),
	}).Infof("set phase durations")

	c.IndentedJSON(http.StatusCreated, "ok")
}

func (d *Daemon) start(c *gin.Context) {
	snap, err := d.ctl.Start()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, snap)
}

func (d *Daemon) confirmWash(c *gin.Context) {
	snap, err := d.ctl.ConfirmWash()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, snap)
}

func (d *Daemon) reset(c *gin.Context) {
	c.IndentedJSON(http.StatusCreated, d.ctl.Reset())
}

func (d *Daemon) pause(c *gin.Context) {
	snap, err := d.ctl.Pause()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, snap)
}

func (d *Daemon) resume(c *gin.Context) {
	snap, err := d.ctl.Resume()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, snap)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
