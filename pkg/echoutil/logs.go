// Package echoutil has pieces shared by echo servers: logging and error handling.
package echoutil

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	apierr "github.com/confixenvios/confixenvios-sub003/pkg/api/types/errors"
)

func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		meth := c.Request().Method
		path := c.Request().URL
		BEGIN := time.Now()
		c.Logger().Infof("< request @[%s] %s %s", BEGIN.Format(time.RFC3339), meth, path)

		err := next(c)

		END := time.Now()
		c.Logger().Infof(
			"> response status = %d (for request %s %s) in %v",
			c.Response().Status, meth, path, END.Sub(BEGIN),
		)
		return err
	}
}

// SetLevel sets the log level of e by name: debug, info, warn, error or off.
func SetLevel(e *echo.Echo, loglevel string) {
	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}

// HTTPErrorHandler responds errors and logs them.
//
// Errors made by pkg/api/types/errors are sent as
// {"message": {"reason": ..., "advice": ..., "see": ...}}. Others are left to echo.
//
// Server errors are logged at error level; client errors at debug level.
func HTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		herr := new(echo.HTTPError)
		if errors.As(err, &herr) {
			code = herr.Code
		}

		if em, ok := herr.Message.(apierr.ErrorMessage); ok && !c.Response().Committed {
			var rerr error
			if c.Request().Method == http.MethodHead {
				rerr = c.NoContent(code)
			} else {
				rerr = c.JSON(code, apierr.ErrorResponse{Message: em})
			}
			if rerr != nil {
				c.Logger().Error(rerr)
			}
		} else {
			e.DefaultHTTPErrorHandler(err, c)
		}

		req := c.Request()
		if code < http.StatusInternalServerError {
			c.Logger().Debugf("%s %s: %d: %s", req.Method, req.URL, code, err)
			return
		}
		if herr.Internal != nil {
			err = herr.Internal
		}
		c.Logger().Errorf("%s %s: %d: %+v", req.Method, req.URL, code, err)
	}
}
