package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "WFM Timesheet API",
        "description": "Fiscal timesheet division: FACT, MAIN and ADDITIONAL sheets per employee-month.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timesheets", "description": "Timesheet division and statistics"},
        {"name": "ProductionCalendar", "description": "Regional production calendars"},
        {"name": "Networks", "description": "Divider settings per network"}
    ],
    "paths": {
        "/timesheets/calc": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Recalculate timesheets",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalcTimesheetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timesheets/calc/async": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Queue a timesheet recalculation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CalcTimesheetRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timesheets/jobs/{id}": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Get a queued recalculation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timesheets/stats": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Timesheet statistics",
                "parameters": [
                    {"name": "employee_id", "in": "query", "required": true, "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "dt_from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "dt_to", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "include_norm", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/production-calendar": {
            "put": {
                "tags": ["ProductionCalendar"],
                "summary": "Import production calendar dates",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportCalendarRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/production-calendar/invalidate": {
            "post": {
                "tags": ["ProductionCalendar"],
                "summary": "Drop cached production calendar months",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/InvalidateCalendarRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/networks/{id}/settings": {
            "get": {
                "tags": ["Networks"],
                "summary": "Get network settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Networks"],
                "summary": "Patch network settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CalcTimesheetRequest": {
            "type": "object",
            "required": ["employee_ids", "dt_from", "dt_to"],
            "properties": {
                "employee_ids": {"type": "array", "items": {"type": "string"}},
                "dt_from": {"type": "string", "format": "date"},
                "dt_to": {"type": "string", "format": "date"},
                "reraise": {"type": "boolean"}
            }
        },
        "CalendarDay": {
            "type": "object",
            "required": ["region_id", "dt", "kind"],
            "properties": {
                "region_id": {"type": "string"},
                "dt": {"type": "string", "format": "date"},
                "kind": {"type": "string", "enum": ["WORK", "SHORT_WORK", "HOLIDAY"]}
            }
        },
        "ImportCalendarRequest": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/CalendarDay"}}
            }
        },
        "InvalidateCalendarRequest": {
            "type": "object",
            "properties": {
                "region_id": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
