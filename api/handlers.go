package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban/domain"
	"kanban/export"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc *BoardService, deduper Deduper, logger *log.Logger) {
	if deduper == nil {
		deduper = NewMemoryDeduper(24 * time.Hour)
	}
	e.JSONSerializer = sonicSerializer{}

	e.GET("/api/board", getBoard(svc))
	e.POST("/api/commands", postCommands(svc, deduper, logger), DecompressRequests(postBodyMaxSize))
	e.POST("/api/drag", postDrag(svc, logger), DecompressRequests(postBodyMaxSize))
	e.GET("/api/stream", streamBoard(svc))
	e.GET("/api/export", getExport(svc))
	e.GET("/healthz", healthz(svc))
}

func healthz(svc *BoardService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(svc *BoardService) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, svc.Board())
	}
}

func getExport(svc *BoardService) echo.HandlerFunc {
	return func(c echo.Context) error {
		format := c.QueryParam("format")
		data, contentType, err := export.Export(svc.Board(), format)
		if errors.Is(err, export.ErrUnknownFormat) {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "export failed")
		}
		if format == "" {
			format = export.FormatJSON
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="board.`+format+`"`)
		return c.Blob(http.StatusOK, contentType, data)
	}
}

func decodeCommands(body io.Reader) ([]domain.Command, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	cmds := make([]domain.Command, 0, 4)
	if err := dec.Decode(&cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

func bodyError(err error) string {
	if errors.Is(err, ErrBodyTooLarge) {
		return ErrBodyTooLarge.Error()
	}
	return "invalid body"
}

func postCommands(svc *BoardService, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newWriteMetrics(c.Request().Context(), logger, "/api/commands")
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		decodeStart := time.Now()
		cmds, decodeErr := decodeCommands(c.Request().Body)
		metrics.ObserveDecode(time.Since(decodeStart))
		if decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.JSON(http.StatusBadRequest, commandsResponse{Error: bodyError(decodeErr)})
			return err
		}
		metrics.SetReceived(len(cmds))

		keys := make([]string, len(cmds))
		now := time.Now().UnixMilli()
		for i := range cmds {
			if cmds[i].IdempotencyKey == "" {
				cmds[i].IdempotencyKey = uuid.NewString()
			}
			if cmds[i].Timestamp == 0 {
				cmds[i].Timestamp = now
			}
			keys[i] = cmds[i].IdempotencyKey
			if vErr := cmds[i].Validate(); vErr != nil {
				metrics.SetErrorStage("validate")
				err = c.JSON(http.StatusBadRequest, commandsResponse{Error: vErr.Error()})
				return err
			}
		}

		fresh, dedupeErr := deduper.AddMany(ctx, keys)
		if dedupeErr != nil {
			logger.WithError(dedupeErr).Warn("dedupe failed, applying all commands")
			fresh = make([]bool, len(keys))
			for i := range fresh {
				fresh[i] = true
			}
		}
		toApply := make([]domain.Command, 0, len(cmds))
		for i, cmd := range cmds {
			if fresh[i] {
				toApply = append(toApply, cmd)
			}
		}
		metrics.SetDuplicates(len(cmds) - len(toApply))

		applyStart := time.Now()
		board, applied, execErr := svc.Execute(ctx, toApply)
		metrics.ObserveApply(time.Since(applyStart))
		metrics.SetApplied(applied)
		if execErr != nil {
			metrics.SetErrorStage("apply")
			err = c.JSON(http.StatusBadRequest, commandsResponse{Error: execErr.Error()})
			return err
		}

		err = c.JSON(http.StatusAccepted, commandsResponse{
			IdempotencyKeys: keys,
			Applied:         applied,
			Duplicates:      len(cmds) - len(toApply),
			Board:           &board,
		})
		return err
	}
}

func postDrag(svc *BoardService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newWriteMetrics(c.Request().Context(), logger, "/api/drag")
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		decodeStart := time.Now()
		body, readErr := io.ReadAll(c.Request().Body)
		var drag domain.Drag
		if readErr == nil {
			drag, readErr = domain.DecodeDrag(body)
		}
		metrics.ObserveDecode(time.Since(decodeStart))
		if readErr != nil {
			metrics.SetErrorStage("decode")
			err = c.JSON(http.StatusBadRequest, dragResponse{Error: bodyError(readErr)})
			return err
		}
		metrics.SetReceived(1)

		applyStart := time.Now()
		board, changed := svc.Drag(ctx, drag)
		metrics.ObserveApply(time.Since(applyStart))
		if changed {
			metrics.SetApplied(1)
		}
		err = c.JSON(http.StatusOK, dragResponse{Applied: changed, Board: &board})
		return err
	}
}
