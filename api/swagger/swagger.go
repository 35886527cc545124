package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Matricula API",
        "description": "Enrollment case workflow for the school administration panel",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Enrollment Cases", "description": "Enrollment case drafting and confirmation"},
        {"name": "Classrooms", "description": "Classroom catalog and seat counts"},
        {"name": "Families", "description": "Family lookup"},
        {"name": "Students", "description": "Student lookup"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/enrollment-cases": {
            "post": {
                "tags": ["Enrollment Cases"],
                "summary": "Open an empty enrollment case session",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/resume": {
            "post": {
                "tags": ["Enrollment Cases"],
                "summary": "Resume a saved draft case into a new session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResumeCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Draft not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}": {
            "get": {
                "tags": ["Enrollment Cases"],
                "summary": "Get a session snapshot with validation state",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Enrollment Cases"],
                "summary": "Update case-level fields (cycle, campus, family)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCaseFieldsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollment Cases"],
                "summary": "Close the session",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/enrollment-cases/{id}/students": {
            "post": {
                "tags": ["Enrollment Cases"],
                "summary": "Add a student slot to the case",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Student already in case", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}": {
            "delete": {
                "tags": ["Enrollment Cases"],
                "summary": "Remove a student slot",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/classroom": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Assign a classroom and start the seat-count lookup",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetClassroomRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/pension": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Set the general pension and rebuild the schedule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetGeneralPensionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/start-month": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Set the month enrollment starts billing",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStartMonthRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/months": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Override a single month's pension amount",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetMonthAmountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Month is not billable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/previous-school": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Set the student's previous school",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetPreviousSchoolRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/students/{slotId}/fees": {
            "put": {
                "tags": ["Enrollment Cases"],
                "summary": "Set enrollment and admission fees for the slot",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slotId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetFeesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/save": {
            "post": {
                "tags": ["Enrollment Cases"],
                "summary": "Persist the draft",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "501": {"description": "Saving not available on the server yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/confirm": {
            "post": {
                "tags": ["Enrollment Cases"],
                "summary": "Confirm the case and create charges",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Case is not confirmable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollment-cases/{id}/export": {
            "get": {
                "tags": ["Enrollment Cases"],
                "summary": "Download the pension schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Enrollment Cases"],
                "summary": "Re-download an archived export by signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "501": {"description": "Archiving disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List classrooms",
                "parameters": [
                    {"name": "cycleId", "in": "query", "type": "string"},
                    {"name": "campus", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/{id}/capacity": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Get live seat counts for a classroom",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/families": {
            "get": {
                "tags": ["Families"],
                "summary": "List families",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/families/{id}": {
            "get": {
                "tags": ["Families"],
                "summary": "Get family",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "familyId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ResumeCaseRequest": {
            "type": "object",
            "properties": {
                "case_id": {"type": "string"}
            },
            "required": ["case_id"]
        },
        "UpdateCaseFieldsRequest": {
            "type": "object",
            "properties": {
                "cycle_id": {"type": "string"},
                "campus_code": {"type": "string"},
                "family_id": {"type": "string"}
            }
        },
        "AddStudentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"}
            },
            "required": ["student_id"]
        },
        "SetClassroomRequest": {
            "type": "object",
            "properties": {
                "classroom_id": {"type": "string"}
            }
        },
        "SetGeneralPensionRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"}
            },
            "required": ["amount"]
        },
        "SetStartMonthRequest": {
            "type": "object",
            "properties": {
                "start_month_index": {"type": "integer", "minimum": 0, "maximum": 9}
            }
        },
        "SetMonthAmountRequest": {
            "type": "object",
            "properties": {
                "month_index": {"type": "integer", "minimum": 0, "maximum": 9},
                "amount": {"type": "number"}
            }
        },
        "SetPreviousSchoolRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["CIMAS", "CIENCIAS", "CIENCIAS_APLICADAS", "OTHER"]},
                "name": {"type": "string"}
            },
            "required": ["type"]
        },
        "SetFeesRequest": {
            "type": "object",
            "properties": {
                "enrollment_fee_amount": {"type": "number"},
                "enrollment_fee_exempt": {"type": "boolean"},
                "admission_fee_amount": {"type": "number"},
                "admission_fee_exempt": {"type": "boolean"}
            }
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
