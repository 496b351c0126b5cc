package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable Engine API",
        "description": "Constraint checking and conflict resolution engine for course timetables",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Validation and synchronous generation"},
        {"name": "Runs", "description": "Stored timetable runs"}
    ],
    "paths": {
        "/timetables/validate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Validate a timetable against scheduling constraints",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a timetable synchronously",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs": {
            "post": {
                "tags": ["Runs"],
                "summary": "Queue a timetable run for background execution",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Asynchronous runs disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Runs"],
                "summary": "List stored timetable runs",
                "parameters": [
                    {"name": "label", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}": {
            "get": {
                "tags": ["Runs"],
                "summary": "Get a stored timetable run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Runs"],
                "summary": "Delete a stored timetable run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}/slots": {
            "get": {
                "tags": ["Runs"],
                "summary": "Get the session rows of a run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}/export": {
            "get": {
                "tags": ["Runs"],
                "summary": "Export a run's schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Rendered file"},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimeSlot": {
            "type": "object",
            "properties": {
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "10:00"}
            },
            "required": ["startTime", "endTime"]
        },
        "SessionRecord": {
            "type": "object",
            "properties": {
                "courseCode": {"type": "string"},
                "facultyId": {"type": "string"},
                "day": {"type": "string", "example": "Monday"},
                "timeSlot": {"$ref": "#/definitions/TimeSlot"},
                "room": {"type": "string"}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "credits": {"type": "integer"},
                "department": {"type": "string"},
                "facultyId": {"type": "string"},
                "hoursPerWeek": {"type": "integer"},
                "preferredDays": {"type": "array", "items": {"type": "string"}},
                "preferredTimeSlots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlot"}}
            },
            "required": ["code", "facultyId"]
        },
        "Faculty": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "department": {"type": "string"},
                "maxHoursPerWeek": {"type": "integer"},
                "expertiseAreas": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["id"]
        },
        "ValidateTimetableRequest": {
            "type": "object",
            "properties": {
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/SessionRecord"}},
                "faculty": {"type": "array", "items": {"$ref": "#/definitions/Faculty"}}
            },
            "required": ["sessions"]
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}},
                "faculty": {"type": "array", "items": {"$ref": "#/definitions/Faculty"}},
                "availableDays": {"type": "array", "items": {"type": "string"}},
                "timeSlots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlot"}}
            },
            "required": ["courses", "faculty"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
