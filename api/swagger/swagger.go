package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CaseTrack API",
        "description": "Dental lab case tracking between clinic and external labs",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Clinic and lab staff login"},
        {"name": "Cases", "description": "Case lifecycle and audit trail"},
        {"name": "Public", "description": "Unauthenticated QR token surface"},
        {"name": "Labs", "description": "External lab administration"},
        {"name": "Users", "description": "Lab login management"},
        {"name": "Dashboard", "description": "Clinic landing summary"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/cases": {
            "get": {
                "tags": ["Cases"],
                "summary": "List cases",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Register case",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Cases"],
                "summary": "Edit case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Cases"],
                "summary": "Delete case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/cases/{id}/transition": {
            "post": {
                "tags": ["Cases"],
                "summary": "Move case status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/cases/{id}/events": {
            "get": {
                "tags": ["Cases"],
                "summary": "Case audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/public/{token}": {
            "get": {
                "tags": ["Public"],
                "summary": "Public case view",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown token"}
                }
            }
        },
        "/public/{token}/transition": {
            "post": {
                "tags": ["Public"],
                "summary": "PIN-gated workflow action",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PublicTransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "PIN incorrect"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/labs": {
            "get": {
                "tags": ["Labs"],
                "summary": "List labs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Labs"],
                "summary": "Register lab",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLabRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{id}/pin": {
            "put": {
                "tags": ["Labs"],
                "summary": "Rotate lab PIN",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetPinRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Case": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "case_code": {"type": "string"},
                "patient_name": {"type": "string"},
                "patient_dob": {"type": "string"},
                "lab_id": {"type": "string"},
                "lab_name": {"type": "string"},
                "status": {"type": "string", "enum": ["SENT_CLINIC", "RECEIVED_BY_LAB", "RETURNED_BY_LAB", "RECEIVED_BY_CLINIC"]},
                "substage": {"type": "string"},
                "eta": {"type": "string"},
                "returned_tracking_no": {"type": "string"},
                "returned_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateCaseRequest": {
            "type": "object",
            "properties": {
                "patient_name": {"type": "string"},
                "patient_dob": {"type": "string"},
                "lab_id": {"type": "string"},
                "substage": {"type": "string"},
                "eta": {"type": "string"}
            },
            "required": ["patient_name", "patient_dob", "lab_id"]
        },
        "UpdateCaseRequest": {
            "type": "object",
            "properties": {
                "patient_name": {"type": "string"},
                "patient_dob": {"type": "string"},
                "lab_id": {"type": "string"},
                "substage": {"type": "string"},
                "eta": {"type": "string"},
                "returned_tracking_no": {"type": "string"}
            },
            "required": ["patient_name", "patient_dob", "lab_id"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "target": {"type": "string"},
                "note": {"type": "string"},
                "tracking_no": {"type": "string"}
            },
            "required": ["target"]
        },
        "PublicTransitionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["receive_lab", "return_lab", "receive_clinic"]},
                "pin": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["action", "pin"]
        },
        "CreateLabRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "contact": {"type": "string"}
            },
            "required": ["name"]
        },
        "SetPinRequest": {
            "type": "object",
            "properties": {
                "new_pin": {"type": "string"}
            },
            "required": ["new_pin"]
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
