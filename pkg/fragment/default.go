package fragment

// DefaultDocument is the empty editor document: a bare screen with no
// children, English as the only language. New sections and unrecoverable
// snapshots both start from this fragment.
const DefaultDocument = `{
  "version": "1",
  "errorType": "RsErrorMessage",
  "form": {
    "key": "Screen",
    "type": "Screen",
    "props": {},
    "children": []
  },
  "localization": {},
  "languages": [
    {
      "code": "en",
      "dialect": "US",
      "name": "English",
      "description": "American English",
      "bidi": "ltr"
    }
  ],
  "defaultLanguage": "en-US"
}`
