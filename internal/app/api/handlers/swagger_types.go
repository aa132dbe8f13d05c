package handlers

import (
	"github.com/trainwise/backend/internal/app/service/statistics"
	"github.com/trainwise/backend/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespListPayments wraps ListPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListPaymentsResponse     `json:"data"`
}

// RespReportSeries wraps ReportSeriesResponse in the standard envelope.
type RespReportSeries struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    statistics.ReportSeriesResponse `json:"data"`
}
