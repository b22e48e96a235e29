// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

// dictEntry is one row of the data dictionary. A nil VR marks a tag whose VR
// is context dependent (e.g. US or SS depending on Pixel Representation) and
// must be resolved through location.inferVRForTag.
type dictEntry struct {
	Name string
	VR   *VR
	VM   string
}

// dataDictionary is a subset of the DICOM data dictionary (PS3.6 chapter 6)
// covering the tags the codec itself needs for implicit VR inference plus the
// attributes commonly seen in study-level data sets.
var dataDictionary = map[DataElementTag]dictEntry{
	FileMetaInformationGroupLengthTag: {"FileMetaInformationGroupLength", ULVR, "1"},
	FileMetaInformationVersionTag:     {"FileMetaInformationVersion", OBVR, "1"},
	MediaStorageSOPClassUIDTag:        {"MediaStorageSOPClassUID", UIVR, "1"},
	MediaStorageSOPInstanceUIDTag:     {"MediaStorageSOPInstanceUID", UIVR, "1"},
	TransferSyntaxUIDTag:              {"TransferSyntaxUID", UIVR, "1"},
	ImplementationClassUIDTag:         {"ImplementationClassUID", UIVR, "1"},
	ImplementationVersionNameTag:      {"ImplementationVersionName", SHVR, "1"},
	0x00020016:                        {"SourceApplicationEntityTitle", AEVR, "1"},

	SpecificCharacterSetTag: {"SpecificCharacterSet", CSVR, "1-n"},
	0x00080008:              {"ImageType", CSVR, "2-n"},
	0x00080016:              {"SOPClassUID", UIVR, "1"},
	0x00080018:              {"SOPInstanceUID", UIVR, "1"},
	0x00080020:              {"StudyDate", DAVR, "1"},
	0x00080021:              {"SeriesDate", DAVR, "1"},
	0x00080022:              {"AcquisitionDate", DAVR, "1"},
	0x00080023:              {"ContentDate", DAVR, "1"},
	0x00080030:              {"StudyTime", TMVR, "1"},
	0x00080031:              {"SeriesTime", TMVR, "1"},
	0x00080032:              {"AcquisitionTime", TMVR, "1"},
	0x00080033:              {"ContentTime", TMVR, "1"},
	0x00080050:              {"AccessionNumber", SHVR, "1"},
	0x00080060:              {"Modality", CSVR, "1"},
	0x00080070:              {"Manufacturer", LOVR, "1"},
	0x00080080:              {"InstitutionName", LOVR, "1"},
	0x00080090:              {"ReferringPhysicianName", PNVR, "1"},
	0x00081030:              {"StudyDescription", LOVR, "1"},
	0x0008103E:              {"SeriesDescription", LOVR, "1"},
	0x00081050:              {"PerformingPhysicianName", PNVR, "1-n"},
	0x00081090:              {"ManufacturerModelName", LOVR, "1"},
	0x00081110:              {"ReferencedStudySequence", SQVR, "1"},
	0x00081140:              {"ReferencedImageSequence", SQVR, "1"},
	0x00081150:              {"ReferencedSOPClassUID", UIVR, "1"},
	0x00081155:              {"ReferencedSOPInstanceUID", UIVR, "1"},
	0x00081199:              {"ReferencedSOPSequence", SQVR, "1"},

	0x00100010: {"PatientName", PNVR, "1"},
	0x00100020: {"PatientID", LOVR, "1"},
	0x00100030: {"PatientBirthDate", DAVR, "1"},
	0x00100040: {"PatientSex", CSVR, "1"},
	0x00101010: {"PatientAge", ASVR, "1"},
	0x00101030: {"PatientWeight", DSVR, "1"},
	0x00104000: {"PatientComments", LTVR, "1"},

	0x00180015: {"BodyPartExamined", CSVR, "1"},
	0x00180050: {"SliceThickness", DSVR, "1"},
	0x00180060: {"KVP", DSVR, "1"},
	0x00181030: {"ProtocolName", LOVR, "1"},
	0x00181151: {"XRayTubeCurrent", ISVR, "1"},
	0x00185100: {"PatientPosition", CSVR, "1"},

	0x0020000D: {"StudyInstanceUID", UIVR, "1"},
	0x0020000E: {"SeriesInstanceUID", UIVR, "1"},
	0x00200010: {"StudyID", SHVR, "1"},
	0x00200011: {"SeriesNumber", ISVR, "1"},
	0x00200013: {"InstanceNumber", ISVR, "1"},
	0x00200032: {"ImagePositionPatient", DSVR, "3"},
	0x00200037: {"ImageOrientationPatient", DSVR, "6"},
	0x00200052: {"FrameOfReferenceUID", UIVR, "1"},
	0x00201041: {"SliceLocation", DSVR, "1"},

	0x00280002:                        {"SamplesPerPixel", USVR, "1"},
	0x00280004:                        {"PhotometricInterpretation", CSVR, "1"},
	0x00280006:                        {"PlanarConfiguration", USVR, "1"},
	0x00280008:                        {"NumberOfFrames", ISVR, "1"},
	0x00280010:                        {"Rows", USVR, "1"},
	0x00280011:                        {"Columns", USVR, "1"},
	0x00280030:                        {"PixelSpacing", DSVR, "2"},
	BitsAllocatedTag:                  {"BitsAllocated", USVR, "1"},
	0x00280101:                        {"BitsStored", USVR, "1"},
	0x00280102:                        {"HighBit", USVR, "1"},
	PixelRepresentationTag:            {"PixelRepresentation", USVR, "1"},
	SmallestValidPixelValueTag:        {"SmallestValidPixelValue", nil, "1"},
	LargestValidPixelValueTag:         {"LargestValidPixelValue", nil, "1"},
	SmallestImagePixelValueTag:        {"SmallestImagePixelValue", nil, "1"},
	LargestImagePixelValueTag:         {"LargestImagePixelValue", nil, "1"},
	SmallestPixelValueInSeriesTag:     {"SmallestPixelValueInSeries", nil, "1"},
	LargestPixelValueInSeriesTag:      {"LargestPixelValueInSeries", nil, "1"},
	SmallestImagePixelValueInPlaneTag: {"SmallestImagePixelValueInPlane", nil, "1"},
	LargestImagePixelValueInPlaneTag:  {"LargestImagePixelValueInPlane", nil, "1"},
	PixelPaddingValueTag:              {"PixelPaddingValue", nil, "1"},
	PixelPaddingRangeLimitTag:         {"PixelPaddingRangeLimit", nil, "1"},
	0x00281050:                        {"WindowCenter", DSVR, "1-n"},
	0x00281051:                        {"WindowWidth", DSVR, "1-n"},
	0x00281052:                        {"RescaleIntercept", DSVR, "1"},
	0x00281053:                        {"RescaleSlope", DSVR, "1"},
	0x00281101:                        {"RedPaletteColorLookupTableDescriptor", nil, "3"},
	0x00281102:                        {"GreenPaletteColorLookupTableDescriptor", nil, "3"},
	0x00281103:                        {"BluePaletteColorLookupTableDescriptor", nil, "3"},
	RedPaletteColorLookupTableDataTag:   {"RedPaletteColorLookupTableData", OWVR, "1"},
	GreenPaletteColorLookupTableDataTag: {"GreenPaletteColorLookupTableData", OWVR, "1"},
	BluePaletteColorLookupTableDataTag:  {"BluePaletteColorLookupTableData", OWVR, "1"},
	0x00283002:                          {"LUTDescriptor", nil, "3"},
	LUTDataTag:                          {"LUTData", OWVR, "1-n"},

	0x003A0200:               {"ChannelDefinitionSequence", SQVR, "1"},
	WaveformBitsStoredTag:    {"WaveformBitsStored", USVR, "1"},
	0x00400100:               {"ScheduledProcedureStepSequence", SQVR, "1"},
	0x00400275:               {"RequestAttributesSequence", SQVR, "1"},
	0x00540016:               {"RadiopharmaceuticalInformationSequence", SQVR, "1"},
	ChannelMinimumValueTag:   {"ChannelMinimumValue", nil, "1"},
	ChannelMaximumValueTag:   {"ChannelMaximumValue", nil, "1"},
	WaveformBitsAllocatedTag: {"WaveformBitsAllocated", USVR, "1"},
	WaveformPaddingValueTag:  {"WaveformPaddingValue", nil, "1"},
	WaveformDataTag:          {"WaveformData", nil, "1"},

	0x60000010:     {"OverlayRows", USVR, "1"},
	0x60000011:     {"OverlayColumns", USVR, "1"},
	0x60000040:     {"OverlayType", CSVR, "1"},
	0x60000050:     {"OverlayOrigin", SSVR, "2"},
	0x60000100:     {"OverlayBitsAllocated", USVR, "1"},
	0x60000102:     {"OverlayBitPosition", USVR, "1"},
	OverlayDataTag: {"OverlayData", nil, "1"},

	0x7FE00008:   {"FloatPixelData", OFVR, "1"},
	0x7FE00009:   {"DoubleFloatPixelData", ODVR, "1"},
	PixelDataTag: {"PixelData", nil, "1"},

	ItemTag:                     {"Item", nil, "1"},
	ItemDelimitationItemTag:     {"ItemDelimitationItem", nil, "1"},
	SequenceDelimitationItemTag: {"SequenceDelimitationItem", nil, "1"},
	DataSetTrailingPaddingTag:   {"DataSetTrailingPadding", OBVR, "1"},
}

// lookupDictionary finds the dictionary entry for a tag, folding the
// repeating overlay groups (60xx) onto their base entries.
func lookupDictionary(tag DataElementTag) (dictEntry, bool) {
	if entry, ok := dataDictionary[tag]; ok {
		return entry, true
	}

	// Overlay groups repeat over 6000-601E; the dictionary stores the 6000
	// form.
	group := tag.GroupNumber()
	if group >= 0x6000 && group <= 0x601E && group%2 == 0 {
		base := tagFromGroupElement(0x6000, tag.ElementNumber())
		if entry, ok := dataDictionary[base]; ok {
			return entry, true
		}
	}

	return dictEntry{}, false
}

// DictionaryVR returns the single VR the data dictionary assigns to the tag,
// or UN when the tag is unknown or its VR is context dependent.
func (t DataElementTag) DictionaryVR() *VR {
	if entry, ok := lookupDictionary(t); ok && entry.VR != nil {
		return entry.VR
	}
	return UNVR
}

// DictionaryName returns the dictionary name of the tag, or "" if unknown.
func (t DataElementTag) DictionaryName() string {
	if entry, ok := lookupDictionary(t); ok {
		return entry.Name
	}
	return ""
}
